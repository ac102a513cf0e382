package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/casebook/internal/casefile"
	"github.com/kokistudios/casebook/internal/casetype"
	"github.com/kokistudios/casebook/internal/catalog"
	"github.com/kokistudios/casebook/internal/model"
)

// Server exposes the case store to MCP clients.
type Server struct {
	cases   *casefile.Store
	types   *casetype.Registry
	catalog *catalog.Catalog
	server  *mcp.Server
}

// NewServer creates a casebook MCP server. cat may be nil.
func NewServer(cases *casefile.Store, types *casetype.Registry, cat *catalog.Catalog, version string) *Server {
	s := &Server{cases: cases, types: types, catalog: cat}

	impl := &mcp.Implementation{
		Name:    "casebook",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "casebook_cases",
		Description: "List legal cases with their category, material count and analysis count. " +
			"Call with no params for every case, or filter by category (民商事, 刑事, 行政, 非诉) and a name substring.",
	}, s.handleCases)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "casebook_case_info",
		Description: "Get one case by name (fuzzy: 张三 finds 张三诉李四借款纠纷). Returns parties, materials, " +
			"the analyses available for its category and which of them are already cached.",
	}, s.handleCaseInfo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "casebook_analyze",
		Description: "Return the analysis report of a case. A cached report is returned as-is, even if materials were " +
			"added since it was produced. Kind accepts an id (dispute-focus) or label (争议焦点分析); empty selects the default.",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "casebook_add_material",
		Description: "Attach a text material to a case. " +
			"BEFORE CALLING: show the user the material name and content, ask for permission, " +
			"then call with user_confirmed=true.",
	}, s.handleAddMaterial)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "casebook_draft",
		Description: "Draft a document (起诉状, 答辩状, 辩护意见, 行政起诉状, 法律意见书) from the case's analyses and " +
			"save it as a new case material. BEFORE CALLING: ask the user for permission, then call with user_confirmed=true.",
	}, s.handleDraft)
}

// CasesArgs defines the input for casebook_cases.
type CasesArgs struct {
	Category string `json:"category,omitempty" jsonschema:"Case category id or label, e.g. civil or 民商事 (optional)"`
	Query    string `json:"query,omitempty" jsonschema:"Substring of the case name (optional)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of cases (default: all)"`
}

// CasesResult is the output of casebook_cases.
type CasesResult struct {
	Cases   []CaseSummary `json:"cases"`
	Message string        `json:"message,omitempty"`
}

// CaseSummary is the listing view of a case.
type CaseSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Business  string `json:"business_type,omitempty"`
	Materials int    `json:"materials"`
	Analyses  int    `json:"analyses"`
	UpdatedAt string `json:"updated_at"`
}

func summarize(c model.Case) CaseSummary {
	out := CaseSummary{
		ID:        c.ID,
		Name:      c.Name,
		Category:  c.Category.Label(),
		Materials: c.MaterialCount,
		Analyses:  c.AnalysisCount,
		UpdatedAt: c.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if c.Category == model.CategoryNonLitigation {
		out.Business = c.BusinessType.Label()
	}
	return out
}

func (s *Server) handleCases(ctx context.Context, req *mcp.CallToolRequest, args CasesArgs) (*mcp.CallToolResult, any, error) {
	var cat model.Category
	if args.Category != "" {
		c, err := model.ParseCategory(args.Category)
		if err != nil {
			return nil, nil, err
		}
		cat = c
	}

	var (
		cases []model.Case
		err   error
	)
	if s.catalog != nil {
		cases, err = s.catalog.List(ctx, catalog.ListParams{Category: cat, Query: args.Query, Limit: args.Limit})
	} else {
		cases, err = s.cases.ListCases()
		cases = filter(cases, cat, args.Query, args.Limit)
	}
	if err != nil {
		return nil, nil, err
	}

	out := CasesResult{Cases: make([]CaseSummary, 0, len(cases))}
	for _, c := range cases {
		out.Cases = append(out.Cases, summarize(c))
	}
	if len(out.Cases) == 0 {
		out.Message = "暂无案件"
	}
	return nil, out, nil
}

func filter(cases []model.Case, cat model.Category, query string, limit int) []model.Case {
	var out []model.Case
	for _, c := range cases {
		if cat != "" && c.Category != cat {
			continue
		}
		if query != "" && !strings.Contains(c.Name, query) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// CaseInfoArgs defines the input for casebook_case_info.
type CaseInfoArgs struct {
	Name string `json:"name" jsonschema:"Case name or a fragment of it"`
}

// CaseInfoResult is the output of casebook_case_info.
type CaseInfoResult struct {
	Case      CaseSummary    `json:"case"`
	Parties   []PartyView    `json:"parties"`
	Materials []MaterialView `json:"materials"`
	Analyses  []KindStatus   `json:"analyses"`
	Documents []string       `json:"documents"`
}

type PartyView struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Info string `json:"info,omitempty"`
}

type MaterialView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Preview string `json:"preview"`
}

type KindStatus struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	Cached bool   `json:"cached"`
}

const previewRunes = 80

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "…"
}

func (s *Server) handleCaseInfo(ctx context.Context, req *mcp.CallToolRequest, args CaseInfoArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Name) == "" {
		return nil, nil, fmt.Errorf("case name is required")
	}
	c, err := s.cases.LoadCase(args.Name)
	if err != nil {
		return nil, nil, err
	}
	h, err := s.types.For(c)
	if err != nil {
		return nil, nil, err
	}

	out := CaseInfoResult{Case: summarize(*c)}

	parties, err := s.cases.ListParties(c)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range parties {
		out.Parties = append(out.Parties, PartyView{Name: p.Name, Role: model.RoleLabel(p.Role), Info: p.Info})
	}

	materials, err := s.cases.ListMaterials(c)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range materials {
		out.Materials = append(out.Materials, MaterialView{ID: m.ID, Name: m.Name, Type: m.Type.Label(), Preview: preview(m.Content)})
	}

	results, err := s.cases.ListAnalysisResults(c)
	if err != nil {
		return nil, nil, err
	}
	done := make(map[string]bool, len(results))
	for _, r := range results {
		done[r.Kind] = true
	}
	for _, k := range h.ValidKinds(c) {
		out.Analyses = append(out.Analyses, KindStatus{Kind: k, Label: model.KindLabel(k), Cached: done[k]})
	}
	for _, r := range h.Documents() {
		out.Documents = append(out.Documents, r.Label())
	}
	return nil, out, nil
}

// AnalyzeArgs defines the input for casebook_analyze.
type AnalyzeArgs struct {
	Case string `json:"case" jsonschema:"Case name or a fragment of it"`
	Kind string `json:"kind,omitempty" jsonschema:"Analysis kind id or label (optional, default depends on the case category)"`
}

// AnalyzeResult is the output of casebook_analyze.
type AnalyzeResult struct {
	Case   string `json:"case"`
	Kind   string `json:"kind"`
	Report string `json:"report"`
	Cached bool   `json:"cached"`
	Failed bool   `json:"failed,omitempty"`
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeArgs) (*mcp.CallToolResult, any, error) {
	c, h, err := s.load(args.Case)
	if err != nil {
		return nil, nil, err
	}
	kind, err := h.ResolveKind(c, args.Kind)
	if err != nil {
		return nil, nil, err
	}
	res, err := h.Analyze(ctx, c, kind)
	if err != nil {
		return nil, nil, err
	}
	return nil, AnalyzeResult{Case: c.Name, Kind: model.KindLabel(kind), Report: res.Text, Cached: res.Cached, Failed: res.Failed}, nil
}

// AddMaterialArgs defines the input for casebook_add_material.
type AddMaterialArgs struct {
	Case          string `json:"case" jsonschema:"Case name or a fragment of it"`
	Name          string `json:"name" jsonschema:"Material name, e.g. 借条"`
	Content       string `json:"content" jsonschema:"Material text"`
	Type          string `json:"type,omitempty" jsonschema:"Material type id or label, e.g. evidence or 证据材料 (default: other)"`
	UserConfirmed bool   `json:"user_confirmed" jsonschema:"REQUIRED. Set true ONLY after the user approved adding this material."`
}

// AddMaterialResult is the output of casebook_add_material.
type AddMaterialResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleAddMaterial(ctx context.Context, req *mcp.CallToolRequest, args AddMaterialArgs) (*mcp.CallToolResult, any, error) {
	if !args.UserConfirmed {
		return nil, nil, fmt.Errorf("user_confirmed must be true - ask the user before adding materials")
	}
	if strings.TrimSpace(args.Name) == "" || strings.TrimSpace(args.Content) == "" {
		return nil, nil, fmt.Errorf("name and content are required")
	}
	c, err := s.cases.LoadCase(args.Case)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.cases.AddMaterial(c, args.Name, args.Content, model.NormalizeMaterialType(args.Type))
	if err != nil {
		return nil, nil, err
	}
	return nil, AddMaterialResult{ID: m.ID, Name: m.Name, Type: m.Type.Label()}, nil
}

// DraftArgs defines the input for casebook_draft.
type DraftArgs struct {
	Case          string `json:"case" jsonschema:"Case name or a fragment of it"`
	Document      string `json:"document" jsonschema:"Document kind id or label, e.g. complaint or 起诉状"`
	UserConfirmed bool   `json:"user_confirmed" jsonschema:"REQUIRED. Set true ONLY after the user approved drafting, since the draft is saved as a material."`
}

// DraftResult is the output of casebook_draft.
type DraftResult struct {
	Document string `json:"document"`
	Text     string `json:"text"`
	Material string `json:"material,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
}

func (s *Server) handleDraft(ctx context.Context, req *mcp.CallToolRequest, args DraftArgs) (*mcp.CallToolResult, any, error) {
	if !args.UserConfirmed {
		return nil, nil, fmt.Errorf("user_confirmed must be true - ask the user before drafting")
	}
	c, h, err := s.load(args.Case)
	if err != nil {
		return nil, nil, err
	}
	doc, err := h.GenerateDocument(ctx, c, args.Document)
	if err != nil {
		return nil, nil, err
	}
	out := DraftResult{Document: doc.Recipe.Label(), Text: doc.Text, Failed: doc.Failed}
	if doc.Material != nil {
		out.Material = doc.Material.Name
	}
	return nil, out, nil
}

func (s *Server) load(name string) (*model.Case, *casetype.Handler, error) {
	c, err := s.cases.LoadCase(name)
	if err != nil {
		return nil, nil, err
	}
	h, err := s.types.For(c)
	if err != nil {
		return nil, nil, err
	}
	return c, h, nil
}
