// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sanitize

import (
	"strings"
	"testing"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		base string
		ext  string
		want string
	}{
		{"plain title", "Attention Is All You Need", ".pdf", "Attention_Is_All_You_Need.pdf"},
		{"path separators", "a/b\\c", ".pdf", "a_b_c.pdf"},
		{"illegal characters", `q:"u|e?r*y<>`, ".pdf", "q_u_e_r_y.pdf"},
		{"collapses runs", "a   b___c", ".pdf", "a_b_c.pdf"},
		{"trims edges", "_.title._", ".pdf", "title.pdf"},
		{"empty input", "", ".pdf", "untitled_document.pdf"},
		{"only specials", "///***", ".pdf", "document.pdf"},
		{"no extension", "report", "", "report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileName(tt.base, tt.ext); got != tt.want {
				t.Errorf("FileName(%q, %q) = %q, want %q", tt.base, tt.ext, got, tt.want)
			}
		})
	}
}

func TestFileNameLength(t *testing.T) {
	long := strings.Repeat("word_", 30)
	got := FileName(long, ".pdf")
	stem := strings.TrimSuffix(got, ".pdf")
	if len(stem) > maxStemLen {
		t.Errorf("stem length = %d, want <= %d", len(stem), maxStemLen)
	}
	if strings.HasSuffix(stem, "_") {
		t.Errorf("stem %q ends with underscore", stem)
	}
}

func TestDirName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "My Article Data", "My_Article_Data"},
		{"illegal characters", `a<b>c"d/e\f|g?h*i`, "a_b_c_d_e_f_g_h_i"},
		{"empty input", "", "untitled_article_data"},
		{"only specials", "?*|", "article_data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DirName(tt.input); got != tt.want {
				t.Errorf("DirName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
