package langdetect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/tmscope/pkg/langdetect"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"shebang bash", "#!/bin/bash\necho hello", "bash"},
		{"shebang sh", "#!/bin/sh\necho hello", "bash"},
		{"shebang python", "#!/usr/bin/env python3\nprint('hello')", "python"},
		{"go code", "package main\n\nfunc main() {}", "go"},
		{"c++ class", "class hoge {\n  void foo();\n};", "c++"},
		{"c++ namespace", "namespace n {\nint x;\n}", "c++"},
		{"c include", "#include <stdio.h>\nint main(void) { return 0; }", "c"},
		{"xml plist", "<?xml version=\"1.0\"?>\n<!DOCTYPE plist PUBLIC \"x\" \"y\">\n<plist/>", "xml property list"},
		{"plain xml", "<?xml version=\"1.0\"?>\n<root/>", "xml"},
		{"html", "<!DOCTYPE html>\n<html></html>", "html"},
		{"python code", "def foo():\n    pass\n", "python"},
		{"json object", `{"key": "value"}`, "json"},
		{"yaml content", "key: value\nlist:\n  - item1", "yaml"},
		{"sql query", "SELECT * FROM users;", "sql"},
		{"rust code", "fn main() {\n    println!(\"hi\");\n}", "rust"},
		{"javascript", "const x = () => 42;", "javascript"},
		{"plain text", "just some text without any code patterns", "text"},
		{"empty", "", "text"},
		{"whitespace", " \n\t", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, langdetect.Detect([]byte(tt.content)))
		})
	}
}

func TestDetect_ShebangTakesPrecedence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bash", langdetect.Detect([]byte("#!/bin/bash\ndef foo():\n    pass")))
}

func TestScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lang string
		want string
	}{
		{"C++", "source.c++"},
		{"cpp", "source.c++"},
		{"c", "source.c"},
		{"Shell", "source.shell"},
		{"XML Property List", "text.xml.plist"},
		{"plist", "text.xml.plist"},
		{"text", langdetect.PlainTextScope},
		{"brainfudge", langdetect.PlainTextScope},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, langdetect.Scope(tt.lang))
		})
	}
}

func TestScopeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "source.go", langdetect.ScopeFor("main.go", nil))
	assert.Equal(t, "source.c++", langdetect.ScopeFor("", []byte("class hoge {\n};")))
	assert.Equal(t, langdetect.PlainTextScope, langdetect.ScopeFor("", nil))
}
