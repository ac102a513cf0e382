package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/kokistudios/casebook/internal/model"
)

func TestTemplate_DisputeFocus(t *testing.T) {
	e := &Template{}
	req := Request{
		CaseName:  "张三诉李四借款纠纷",
		Materials: []string{"【借条】\n今借到张三人民币十万元整，约定年利息百分之六。", "李四未按期还款。"},
		Category:  model.CategoryCivil,
		Kind:      model.KindDisputeFocus,
	}
	out, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{
		"# 张三诉李四借款纠纷 争议焦点分析",
		"## 第一层：法律关系分析",
		"## 第二层：请求权基础分解",
		"## 第三层：争议焦点识别",
		"民间借贷法律关系",
		"李四未按期还款",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	again, _ := e.Generate(context.Background(), req)
	if again != out {
		t.Error("template output is not deterministic")
	}
}

func TestTemplate_GenericAndDocument(t *testing.T) {
	e := &Template{}
	mats := []string{"双方签订买卖合同，乙方逾期交货构成违约。"}

	out, err := e.Generate(context.Background(), Request{CaseName: "甲", Materials: mats, Category: model.CategoryCivil, Kind: model.KindEvidenceAnalysis})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "## 证据三性审查") {
		t.Errorf("missing outline section:\n%s", out)
	}

	doc, err := e.Generate(context.Background(), Request{
		CaseName: "甲", Materials: mats, Category: model.CategoryCivil, Kind: model.DocComplaint,
		Context: []string{"# 甲 争议焦点分析\n\n..."},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# 甲 起诉状", "## 诉讼请求", "继续履行或承担违约责任的请求", "参考：甲 争议焦点分析"} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestTemplate_Errors(t *testing.T) {
	e := &Template{}
	if _, err := e.Generate(context.Background(), Request{Kind: model.KindBasicAnalysis}); err == nil {
		t.Error("expected error without materials")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Generate(ctx, Request{Materials: []string{"x"}}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(Request{
		CaseName:  "甲",
		Materials: []string{"材料一", "材料二"},
		Category:  model.CategoryCriminal,
		Kind:      model.KindDisputeFocus,
	})
	for _, want := range []string{"案件名称：甲", "案件类型：刑事", "三层次争议焦点", "材料一" + materialSeparator + "材料二"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
