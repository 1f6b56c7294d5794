package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/my-own-web-services/mows-sub001/pkg/filez"
)

// Out and Err are where every printer writes. Tests swap them for buffers.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

// Printf writes a status line to Out.
func Printf(format string, a ...interface{}) {
	fmt.Fprintf(Out, format, a...)
}

// Errorf writes a status line to Err.
func Errorf(format string, a ...interface{}) {
	fmt.Fprintf(Err, format, a...)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
}

// JSON prints v as indented JSON.
func JSON(v interface{}) {
	enc := json.NewEncoder(Out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// FileTable prints a slice of files as a human-readable table.
func FileTable(files []filez.File) {
	if len(files) == 0 {
		fmt.Fprintln(Out, "No files found.")
		return
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tTYPE\tKEYWORDS\tMODIFIED")
	for _, f := range files {
		keywords := "-"
		if len(f.Keywords) > 0 {
			keywords = strings.Join(f.Keywords, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Name, FormatSize(f.Size), shortMIME(f.MimeType), keywords, RelativeTime(lastChange(f)))
	}
	w.Flush()
}

func lastChange(f filez.File) int64 {
	if f.Modified != nil {
		return *f.Modified
	}
	return f.Created
}

// FileDetail prints a single file's details.
func FileDetail(f filez.File) {
	w := newTable()
	fmt.Fprintf(w, "Name:\t%s\n", f.Name)
	fmt.Fprintf(w, "ID:\t%s\n", f.ID)
	fmt.Fprintf(w, "Type:\t%s\n", f.MimeType)
	fmt.Fprintf(w, "Size:\t%s\n", FormatSize(f.Size))
	fmt.Fprintf(w, "Owner:\t%s\n", f.OwnerID)
	if f.SHA256 != nil {
		fmt.Fprintf(w, "SHA256:\t%s\n", *f.SHA256)
	}
	if len(f.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords:\t%s\n", strings.Join(f.Keywords, ", "))
	}
	if len(f.StaticFileGroupIDs) > 0 {
		fmt.Fprintf(w, "Static Groups:\t%s\n", strings.Join(f.StaticFileGroupIDs, ", "))
	}
	if len(f.DynamicFileGroupIDs) > 0 {
		fmt.Fprintf(w, "Dynamic Groups:\t%s\n", strings.Join(f.DynamicFileGroupIDs, ", "))
	}
	fmt.Fprintf(w, "Readonly:\t%v\n", f.Readonly)
	fmt.Fprintf(w, "Created:\t%s\n", formatUnix(f.Created))
	if f.Modified != nil {
		fmt.Fprintf(w, "Modified:\t%s\n", formatUnix(*f.Modified))
	}
	if f.Accessed != nil {
		fmt.Fprintf(w, "Accessed:\t%s (%d times)\n", formatUnix(*f.Accessed), f.AccessedCount)
	}
	w.Flush()
}

// GroupTable prints file groups.
func GroupTable(groups []filez.FileGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(Out, "No groups found.")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tITEMS\tRULE")
	for _, g := range groups {
		rule := "-"
		if r := g.DynamicGroupRules; r != nil {
			op := "~"
			if r.RuleType == filez.FilterRuleNotMatchRegex {
				op = "!~"
			}
			rule = fmt.Sprintf("%s %s %s", r.Field, op, r.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", g.ID, g.Name, g.GroupType, g.ItemCount, rule)
	}
	w.Flush()
}

// PermissionTable prints permissions.
func PermissionTable(perms []filez.Permission) {
	if len(perms) == 0 {
		fmt.Fprintln(Out, "No permissions found.")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tRESOURCE\tUSE\tACTIONS")
	for _, p := range perms {
		actions := "-"
		if p.Content.ACL != nil && len(p.Content.ACL.What) > 0 {
			actions = strings.Join(p.Content.ACL.What, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Content.Type, p.UseType, actions)
	}
	w.Flush()
}

// UserTable prints users.
func UserTable(users []filez.User) {
	if len(users) == 0 {
		fmt.Fprintln(Out, "No users found.")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, orDash(u.Name), orDash(u.Email), u.Role, u.Status)
	}
	w.Flush()
}

// UserGroupTable prints user groups.
func UserGroupTable(groups []filez.UserGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(Out, "No user groups found.")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tVISIBILITY\tOWNER")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.ID, g.Name, g.Visibility, g.OwnerID)
	}
	w.Flush()
}

// UserInfo prints user details.
func UserInfo(u filez.User) {
	w := newTable()
	fmt.Fprintf(w, "Email:\t%s\n", orDash(u.Email))
	fmt.Fprintf(w, "Name:\t%s\n", orDash(u.Name))
	fmt.Fprintf(w, "Role:\t%s\n", u.Role)
	fmt.Fprintf(w, "Status:\t%s\n", u.Status)
	fmt.Fprintf(w, "ID:\t%s\n", u.ID)
	if l := u.Limits; l != nil {
		fmt.Fprintf(w, "Storage:\t%s\n", usage(FormatSize(l.UsedStorage), FormatSize(l.MaxStorage), l.MaxStorage))
		fmt.Fprintf(w, "Files:\t%s\n", usage(fmt.Sprint(l.UsedFiles), fmt.Sprint(l.MaxFiles), l.MaxFiles))
	}
	w.Flush()
}

func usage(used, limitText string, limit int64) string {
	if limit <= 0 {
		return used + " / unlimited"
	}
	return used + " / " + limitText
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// FormatSize converts bytes to a human-readable string.
func FormatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// RelativeTime formats a unix timestamp relative to now (e.g. "2h ago", "3d ago").
func RelativeTime(unix int64) string {
	t := time.Unix(unix, 0)
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.UTC().Format("2006-01-02")
	}
}

func formatUnix(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func shortMIME(mime string) string {
	// "application/pdf" -> "pdf", "image/png" -> "png"
	parts := strings.Split(mime, "/")
	if len(parts) == 2 {
		s := parts[1]
		if idx := strings.LastIndex(s, "."); idx >= 0 {
			s = s[idx+1:]
		}
		return s
	}
	return mime
}
