package utils

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name: "ignore comments",
			lines: []string{
				"// Line comment",
				"/* Single line block comment.*/",
				"statement() // With a comment",
			},
			want: []string{"statement()"},
		},
		{
			name: "ignore comments multiline",
			lines: []string{
				"step1(). // Inline comment",
				"step2(). /* Inline block comment */",
				"step3(); // Inline comment",
			},
			want: []string{"step1().step2().step3();"},
		},
		{
			name: "ignore formatting chars",
			lines: []string{
				"step1().\r",
				"\tstep2().\r\n",
				"  step3();",
			},
			want: []string{"step1().step2().step3();"},
		},
		{
			name: "statements with urls",
			lines: []string{
				"graph.addVertex(label,'aLabel','websiteUrl', 'https://www.google.com.au');",
				"graph.addVertex(label,'aLabel','websiteUrl', 'https://www.apple.com.');",
			},
			want: []string{
				"graph.addVertex(label,'aLabel','websiteUrl', 'https://www.google.com.au');",
				"graph.addVertex(label,'aLabel','websiteUrl', 'https://www.apple.com.');",
			},
		},
		{
			name: "url with trailing comment",
			lines: []string{
				"graph.addVertex(label,'a','url','https://x.com.au'); // seed",
			},
			want: []string{"graph.addVertex(label,'a','url','https://x.com.au');"},
		},
		{
			name: "multiple statements",
			lines: []string{
				"schema.propertyKey('name').Text().create();",
				"",
				"schema.vertexLabel('user')",
				"    .properties('name')",
				"    .create();",
			},
			want: []string{
				"schema.propertyKey('name').Text().create();",
				"schema.vertexLabel('user').properties('name').create();",
			},
		},
		{
			name: "unterminated last statement",
			lines: []string{
				"schema.propertyKey('name').Text().create();",
				"g.V().count()",
			},
			want: []string{
				"schema.propertyKey('name').Text().create();",
				"g.V().count()",
			},
		},
		{
			name: "indented comment line contributes nothing",
			lines: []string{
				"step1().",
				"    // explain step2",
				"    step2();",
			},
			want: []string{"step1().step2();"},
		},
		{
			name:  "only comments",
			lines: []string{"// nothing", "/* here */", ""},
			want:  nil,
		},
		{
			name:  "empty input",
			lines: nil,
			want:  nil,
		},
	}

	parser := NewStatementParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parser.Parse(tt.lines)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	scripts := [][]string{
		{
			"// properties",
			"schema.propertyKey('name').Text().single().create(); // key",
			"schema.vertexLabel('video')",
			"\t.properties('name')",
			"\t.create();",
			"graph.addVertex(label, 'video', 'url', 'https://example.com/v/1');",
			"g.V().hasLabel('video').count()",
		},
		{
			"a();",
			"b().",
			"c()",
		},
	}

	parser := NewStatementParser()
	for i, lines := range scripts {
		first := parser.Parse(lines)

		var resplit []string
		for _, statement := range first {
			resplit = append(resplit, splitAfterTerminator(statement)...)
		}
		second := parser.Parse(resplit)

		if !reflect.DeepEqual(first, second) {
			t.Errorf("script %d: reparse = %q, want %q", i, second, first)
		}
	}
}

func TestTrimStatement(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"    piglet    ", "piglet"},
		{"\t\t    piglet    \t\t", "piglet"},
		{"piglet    \t\t", "piglet"},
		{"\t\t    piglet", "piglet"},
		{"pig let", "pig let"},
	}

	for _, tt := range tests {
		if got := trimStatement(tt.in); got != tt.want {
			t.Errorf("trimStatement(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func splitAfterTerminator(statement string) []string {
	parts := strings.SplitAfter(statement, statementTerminator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
