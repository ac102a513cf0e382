package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input    string
		cmd      string
		raw      string
		hasColon bool
	}{
		{"新建案件：合同纠纷 民商事", "新建案件", "合同纠纷 民商事", true},
		{"选择案件:张三", "选择案件", "张三", true},
		{"  选择案件 ：  张三  ", "选择案件", "张三", true},
		{"选择案件：案件：张三案", "选择案件", "案件：张三案", true},
		{"help", "help", "", false},
		{"添加材料 借条 张三借款", "添加材料", "借条 张三借款", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		cmd, raw, hasColon := Tokenize(tt.input)
		if cmd != tt.cmd || raw != tt.raw || hasColon != tt.hasColon {
			t.Errorf("Tokenize(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.input, cmd, raw, hasColon, tt.cmd, tt.raw, tt.hasColon)
		}
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"合同纠纷 民商事", []string{"合同纠纷", "民商事"}},
		{"张三诉李四合同纠纷案", []string{"张三诉李四合同纠纷案"}},
		{"张三 诉 李四", []string{"张三", "诉 李四"}},
		{"张三 诉 李四 刑事", []string{"张三 诉 李四", "刑事"}},
		{"借条　全角空格", []string{"借条", "全角空格"}},
		{"M1 C1", []string{"M1", "C1"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SplitArgs(tt.raw)); diff != "" {
			t.Errorf("SplitArgs(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		cmd   string
		args  []string
	}{
		{"新建案件：合同纠纷 民商事", "新建案件", []string{"合同纠纷", "民商事"}},
		{"新建案件：张三诉李四合同纠纷案", "新建案件", []string{"张三诉李四合同纠纷案"}},
		{"new 合同纠纷 刑事", "new", []string{"合同纠纷", "刑事"}},
		{"查看案件列表", "查看案件列表", nil},
		{"  帮助  ", "帮助", nil},
	}
	for _, tt := range tests {
		cmd, args := Parse(tt.input)
		if cmd != tt.cmd {
			t.Errorf("Parse(%q) cmd = %q, want %q", tt.input, cmd, tt.cmd)
		}
		if diff := cmp.Diff(tt.args, args); diff != "" {
			t.Errorf("Parse(%q) args mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}
