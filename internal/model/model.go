// Package model defines the case entities and their closed vocabularies.
package model

import (
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/kokistudios/casebook/internal/apperr"
)

// Category is the closed classification of a case.
type Category string

const (
	CategoryCivil          Category = "civil"
	CategoryCriminal       Category = "criminal"
	CategoryAdministrative Category = "administrative"
	CategoryNonLitigation  Category = "non-litigation"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryCivil, CategoryCriminal, CategoryAdministrative, CategoryNonLitigation}

var categoryLabels = map[Category]string{
	CategoryCivil:          "民商事",
	CategoryCriminal:       "刑事",
	CategoryAdministrative: "行政",
	CategoryNonLitigation:  "非诉",
}

// Label returns the Chinese display label.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory accepts a category id or its label. An empty string yields
// the civil category.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryCivil, nil
	}
	if c, ok := LookupCategory(s); ok {
		return c, nil
	}
	return "", apperr.Validation("无效的案件类型: %s", s).
		WithHint("可选类型: 民商事, 刑事, 行政, 非诉")
}

// LookupCategory reports whether s names a category exactly.
func LookupCategory(s string) (Category, bool) {
	ls := strings.ToLower(s)
	for _, c := range Categories {
		if ls == string(c) || s == c.Label() {
			return c, true
		}
	}
	switch s {
	case "民事", "商事":
		return CategoryCivil, true
	case "非诉讼":
		return CategoryNonLitigation, true
	}
	return "", false
}

// BusinessType refines the non-litigation category.
type BusinessType string

const (
	BusinessUnspecified       BusinessType = ""
	BusinessContractReview    BusinessType = "contract-review"
	BusinessLegalConsultation BusinessType = "legal-consultation"
	BusinessComplianceReview  BusinessType = "compliance-review"
)

var businessLabels = map[BusinessType]string{
	BusinessContractReview:    "合同审查",
	BusinessLegalConsultation: "法律咨询",
	BusinessComplianceReview:  "合规审查",
}

func (b BusinessType) Label() string {
	if l, ok := businessLabels[b]; ok {
		return l
	}
	return "未指定"
}

// ParseBusinessType accepts an id or a label; unknown values are rejected.
func ParseBusinessType(s string) (BusinessType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BusinessUnspecified, nil
	}
	for b, l := range businessLabels {
		if strings.EqualFold(s, string(b)) || s == l {
			return b, nil
		}
	}
	return "", apperr.Validation("无效的业务类型: %s", s).
		WithHint("可选业务类型: 合同审查, 法律咨询, 合规审查")
}

const StatusActive = "active"

// Case is the top-level unit of work.
type Case struct {
	ID            string       `yaml:"case_id" json:"case_id"`
	Name          string       `yaml:"case_name" json:"case_name"`
	Category      Category     `yaml:"case_type" json:"case_type"`
	BusinessType  BusinessType `yaml:"business_type,omitempty" json:"business_type,omitempty"`
	Status        string       `yaml:"status" json:"status"`
	CreatedAt     time.Time    `yaml:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `yaml:"updated_at" json:"updated_at"`
	MaterialCount int          `yaml:"material_count" json:"material_count"`
	AnalysisCount int          `yaml:"analysis_count" json:"analysis_count"`
}

// NewCaseID returns an opaque, immutable case identifier.
func NewCaseID() string {
	return "CASE-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// MaterialType is the closed material category set.
type MaterialType string

const (
	MaterialEvidence           MaterialType = "evidence"
	MaterialPleading           MaterialType = "pleading"
	MaterialContract           MaterialType = "contract"
	MaterialLitigationDocument MaterialType = "litigation-document"
	MaterialLegalDocument      MaterialType = "legal-document"
	MaterialOther              MaterialType = "other"
)

// MaterialTypes lists material categories in display order.
var MaterialTypes = []MaterialType{
	MaterialEvidence, MaterialPleading, MaterialContract,
	MaterialLitigationDocument, MaterialLegalDocument, MaterialOther,
}

var materialLabels = map[MaterialType]string{
	MaterialEvidence:           "证据材料",
	MaterialPleading:           "诉辩材料",
	MaterialContract:           "合同文件",
	MaterialLitigationDocument: "诉讼文书",
	MaterialLegalDocument:      "法律文书",
	MaterialOther:              "其他材料",
}

func (m MaterialType) Label() string {
	if l, ok := materialLabels[m]; ok {
		return l
	}
	return materialLabels[MaterialOther]
}

// NormalizeMaterialType maps ids and labels onto the closed set. Anything
// unrecognized becomes MaterialOther.
func NormalizeMaterialType(s string) MaterialType {
	s = strings.TrimSpace(s)
	for _, m := range MaterialTypes {
		if strings.EqualFold(s, string(m)) || s == m.Label() {
			return m
		}
	}
	return MaterialOther
}

// MaterialTypeFromLabel is the inverse of Label for folder names.
func MaterialTypeFromLabel(label string) (MaterialType, bool) {
	for m, l := range materialLabels {
		if l == label {
			return m, true
		}
	}
	return "", false
}

// Material is a document or text attached to a case.
type Material struct {
	ID        string       `yaml:"id" json:"id"`
	Name      string       `yaml:"name" json:"name"`
	Content   string       `yaml:"-" json:"content"`
	Type      MaterialType `yaml:"type" json:"type"`
	CreatedAt time.Time    `yaml:"created_at" json:"created_at"`
}

// SortMaterials orders materials by creation time, oldest first.
func SortMaterials(ms []Material) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

// AnalysisResult is the stored output of one analysis kind for one case.
type AnalysisResult struct {
	CaseID    string    `yaml:"case_id" json:"case_id"`
	Kind      string    `yaml:"analysis_type" json:"analysis_type"`
	Result    string    `yaml:"-" json:"result"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// Side is the bucket a party falls into.
type Side string

const (
	SideClaimant   Side = "claimant"
	SideRespondent Side = "respondent"
	SideOther      Side = "other"
)

// Party is a participant in a case.
type Party struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Role      string    `yaml:"role" json:"role"`
	Info      string    `yaml:"-" json:"info"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// TimelineEvent is one entry of a case's chronological log.
type TimelineEvent struct {
	ID          string    `yaml:"id" json:"id"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Date        time.Time `yaml:"date" json:"date"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
}

// SortEvents orders events by date, then by creation time.
func SortEvents(es []TimelineEvent) {
	sort.SliceStable(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date) {
			return es[i].Date.Before(es[j].Date)
		}
		if !es[i].CreatedAt.Equal(es[j].CreatedAt) {
			return es[i].CreatedAt.Before(es[j].CreatedAt)
		}
		return es[i].ID < es[j].ID
	})
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID; ids created later in the same process sort after
// earlier ones.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ParseDate accepts the date layouts users type into commands.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006/01/02", "2006.01.02", "2006年1月2日", "2006-01-02 15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("无法识别的日期: %s", s).WithHint("日期格式示例: 2024-03-15")
}
