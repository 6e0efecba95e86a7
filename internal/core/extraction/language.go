package extraction

import (
	"path"
	"strings"
)

// languageIndicator は言語とその存在を示すファイル名・拡張子の組
type languageIndicator struct {
	language   string
	indicators []string
}

// 言語推定の指標テーブル
// 判定は上から順に行われ、最初に一致した言語が採用される
var languageIndicators = []languageIndicator{
	{"Python", []string{"requirements.txt", "setup.py", "pyproject.toml", "Pipfile", ".py"}},
	{"JavaScript", []string{"package.json", "yarn.lock", "package-lock.json", ".js", ".ts"}},
	{"Java", []string{"pom.xml", "build.gradle", ".java"}},
	{"Go", []string{"go.mod", "go.sum", ".go"}},
	{"Rust", []string{"Cargo.toml", ".rs"}},
	{"C/C++", []string{"CMakeLists.txt", "Makefile", ".c", ".cpp", ".h"}},
	{"PHP", []string{"composer.json", ".php"}},
	{"Ruby", []string{"Gemfile", ".rb"}},
	{"C#", []string{".cs", ".csproj"}},
}

// languageUnknown は指標に一致しなかった場合の言語名
const languageUnknown = "Unknown"

// InferLanguage は標本のファイル群から主要言語を推定する
// 設定ファイル名を先に、次にソースファイルの拡張子を調べ、
// どちらもファイルの発見順に先勝ちで判定する
func InferLanguage(configFiles, sourceFiles []FileContent) string {
	for _, f := range configFiles {
		base := strings.ToLower(path.Base(f.Path))
		for _, li := range languageIndicators {
			for _, ind := range li.indicators {
				if strings.Contains(base, strings.ToLower(ind)) {
					return li.language
				}
			}
		}
	}

	for _, f := range sourceFiles {
		for _, li := range languageIndicators {
			for _, ind := range li.indicators {
				if strings.HasPrefix(ind, ".") && strings.HasSuffix(f.Path, ind) {
					return li.language
				}
			}
		}
	}

	return languageUnknown
}
