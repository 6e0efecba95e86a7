package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestInferLanguage は設定ファイル名とソース拡張子からの言語推定を確認します
func TestInferLanguage(t *testing.T) {
	tests := []struct {
		name    string
		configs []FileContent
		sources []FileContent
		want    string
	}{
		{
			name:    "requirements.txtはPython",
			configs: []FileContent{{Path: "requirements.txt"}},
			want:    "Python",
		},
		{
			name:    "package.jsonはJavaScript",
			configs: []FileContent{{Path: "package.json"}},
			want:    "JavaScript",
		},
		{
			name:    "go.modはGo",
			configs: []FileContent{{Path: "go.mod"}},
			want:    "Go",
		},
		{
			name:    "Cargo.tomlはRust",
			configs: []FileContent{{Path: "Cargo.toml"}},
			want:    "Rust",
		},
		{
			name:    "pom.xmlはJava",
			configs: []FileContent{{Path: "backend/pom.xml"}},
			want:    "Java",
		},
		{
			name:    "設定がなければソース拡張子で推定",
			sources: []FileContent{{Path: "src/lib.rs"}},
			want:    "Rust",
		},
		{
			name:    "設定ファイルが先に発見された言語が勝つ",
			configs: []FileContent{{Path: "package.json"}, {Path: "requirements.txt"}},
			sources: []FileContent{{Path: "main.py"}},
			want:    "JavaScript",
		},
		{
			name:    "設定の判定はソースより優先",
			configs: []FileContent{{Path: "requirements.txt"}},
			sources: []FileContent{{Path: "index.js"}},
			want:    "Python",
		},
		{
			name: "どちらも一致しなければUnknown",
			configs: []FileContent{
				{Path: "settings.ini"},
			},
			sources: []FileContent{
				{Path: "script.sh"},
			},
			want: "Unknown",
		},
		{
			name: "空の標本はUnknown",
			want: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferLanguage(tt.configs, tt.sources))
		})
	}
}
