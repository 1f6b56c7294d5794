package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"gorm.io/gorm"
)

// Fields a dynamic group rule can match against.
const (
	RuleFieldName     = "name"
	RuleFieldMimeType = "mime_type"
	RuleFieldKeywords = "keywords"
	RuleFieldOwnerID  = "owner_id"
)

var ErrInvalidRule = errors.New("invalid dynamic group rule")

type GroupService struct {
	DB *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{DB: db}
}

func ValidateRule(rule *filez.FilterRule) error {
	if rule == nil {
		return fmt.Errorf("%w: dynamic groups need a rule", ErrInvalidRule)
	}
	switch rule.Field {
	case RuleFieldName, RuleFieldMimeType, RuleFieldKeywords, RuleFieldOwnerID:
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidRule, rule.Field)
	}
	switch rule.RuleType {
	case filez.FilterRuleMatchRegex, filez.FilterRuleNotMatchRegex:
	default:
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, rule.RuleType)
	}
	if _, err := regexp.Compile(rule.Value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

// Matches applies rule to file. Keywords match when any keyword matches.
func Matches(rule *filez.FilterRule, file *models.File) bool {
	if rule == nil {
		return false
	}
	re, err := regexp.Compile(rule.Value)
	if err != nil {
		return false
	}

	var matched bool
	switch rule.Field {
	case RuleFieldName:
		matched = re.MatchString(file.Name)
	case RuleFieldMimeType:
		matched = re.MatchString(file.MimeType)
	case RuleFieldOwnerID:
		matched = re.MatchString(file.OwnerID.String())
	case RuleFieldKeywords:
		for _, keyword := range file.Keywords {
			if re.MatchString(keyword) {
				matched = true
				break
			}
		}
	default:
		return false
	}

	if rule.RuleType == filez.FilterRuleNotMatchRegex {
		return !matched
	}
	return matched
}

// Members returns the files of a group. Static groups list files that name
// the group; dynamic groups select the owner's files by rule.
func (s *GroupService) Members(ctx context.Context, group *models.FileGroup) ([]models.File, error) {
	var files []models.File
	if group.GroupType == filez.FileGroupTypeStatic {
		err := s.DB.WithContext(ctx).
			Where("static_file_group_ids LIKE ?", "%"+quoted(group.ID.String())+"%").
			Order("created_at").
			Find(&files).Error
		return files, err
	}

	var owned []models.File
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", group.OwnerID).Order("created_at").Find(&owned).Error; err != nil {
		return nil, err
	}
	for i := range owned {
		if Matches(group.DynamicGroupRules, &owned[i]) {
			files = append(files, owned[i])
		}
	}
	return files, nil
}

func (s *GroupService) ItemCount(ctx context.Context, group *models.FileGroup) (int64, error) {
	if group.GroupType == filez.FileGroupTypeStatic {
		var count int64
		err := s.DB.WithContext(ctx).Model(&models.File{}).
			Where("static_file_group_ids LIKE ?", "%"+quoted(group.ID.String())+"%").
			Count(&count).Error
		return count, err
	}
	members, err := s.Members(ctx, group)
	return int64(len(members)), err
}

// DynamicGroupIDs lists the owner's dynamic groups file currently falls into.
func (s *GroupService) DynamicGroupIDs(ctx context.Context, file *models.File) ([]string, error) {
	var groups []models.FileGroup
	err := s.DB.WithContext(ctx).
		Where("owner_id = ? AND group_type = ?", file.OwnerID, filez.FileGroupTypeDynamic).
		Order("created_at").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for i := range groups {
		if Matches(groups[i].DynamicGroupRules, file) {
			ids = append(ids, groups[i].ID.String())
		}
	}
	return ids, nil
}

// FileToAPI renders file with its dynamic group membership.
func (s *GroupService) FileToAPI(ctx context.Context, file *models.File) (filez.File, error) {
	ids, err := s.DynamicGroupIDs(ctx, file)
	if err != nil {
		return filez.File{}, err
	}
	return file.ToAPI(ids), nil
}

func (s *GroupService) GroupToAPI(ctx context.Context, group *models.FileGroup) (filez.FileGroup, error) {
	count, err := s.ItemCount(ctx, group)
	if err != nil {
		return filez.FileGroup{}, err
	}
	return group.ToAPI(count), nil
}

func quoted(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, "") + `"`
}
