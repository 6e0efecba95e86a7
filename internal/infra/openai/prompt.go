package openai

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/jinford/readmegen/internal/core/extraction"
	"github.com/jinford/readmegen/internal/core/hosting"
)

const (
	// systemPrompt はシステムメッセージとして送る役割指定
	systemPrompt = "You are a software documentation expert and professional README creator."

	// maxStructureEntries はプロンプトに載せる構造エントリの上限
	maxStructureEntries = 20

	// maxConfigFiles はプロンプトに本文を載せる設定ファイルの上限
	maxConfigFiles = 5

	// maxConfigChars は設定ファイル1件あたりの本文文字数上限
	maxConfigChars = 1000

	// maxSourceNames はプロンプトに載せるコードファイル名の上限
	maxSourceNames = 10
)

// budgetedPrompt はトークン予算に収まるプロンプトを構築します。
// 予算を超える場合は設定ファイル本文を後ろから落としていきます
func (g *Generator) budgetedPrompt(sample *extraction.RepositorySample, changes *hosting.ChangeSummary) string {
	configCount := min(maxConfigFiles, len(sample.ConfigFiles))

	for n := configCount; n > 0; n-- {
		prompt := buildPrompt(sample, changes, n)
		if g.countTokens(prompt) <= g.maxPromptTokens {
			if n < configCount {
				g.logger.Warn("Prompt exceeded token budget, dropped config file contents",
					"kept", n,
					"dropped", configCount-n,
				)
			}
			return prompt
		}
	}

	// 本文を全部落としても超えるときはそのまま送る。構造とファイル名だけなら小さい
	prompt := buildPrompt(sample, changes, 0)
	if configCount > 0 {
		g.logger.Warn("Prompt exceeded token budget, dropped all config file contents",
			"dropped", configCount,
		)
	}
	return prompt
}

// buildPrompt はリポジトリ情報からREADME生成用プロンプトを組み立てます。
// 既存のREADMEは生成を引っ張らないよう意図的に載せません
func buildPrompt(sample *extraction.RepositorySample, changes *hosting.ChangeSummary, configCount int) string {
	name := sample.Name
	if name == "" {
		name = "the project"
	}
	description := sample.Description
	if description == "" {
		description = "Not provided"
	}
	language := sample.PrimaryLanguage
	if language == "" {
		language = "Unknown"
	}

	var b strings.Builder

	b.WriteString("Your task is to generate a complete and professional README.md for a software repository.\n\n")

	b.WriteString("## Repository Information\n\n")
	fmt.Fprintf(&b, "**Name:** %s\n", name)
	fmt.Fprintf(&b, "**Description:** %s\n", description)
	fmt.Fprintf(&b, "**Main Language:** %s\n", language)

	b.WriteString("\n## Project Structure\n")
	if len(sample.Directories) == 0 {
		b.WriteString("Structure not available\n")
	} else {
		for _, dir := range sample.Directories[:min(maxStructureEntries, len(sample.Directories))] {
			b.WriteString(dir)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Configuration Files Found\n")
	if configCount == 0 || len(sample.ConfigFiles) == 0 {
		b.WriteString("No configuration files found\n")
	} else {
		for _, file := range sample.ConfigFiles[:min(configCount, len(sample.ConfigFiles))] {
			fmt.Fprintf(&b, "\n### %s\n```\n%s\n```\n", file.Path, truncateRunes(file.Content, maxConfigChars))
		}
	}

	b.WriteString("\n## Main Code Files\n")
	if len(sample.SourceFiles) == 0 {
		b.WriteString("No code files analyzed\n")
	} else {
		for _, file := range sample.SourceFiles[:min(maxSourceNames, len(sample.SourceFiles))] {
			if lang := enry.GetLanguage(path.Base(file.Path), []byte(file.Content)); lang != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", file.Path, lang)
			} else {
				fmt.Fprintf(&b, "- %s\n", file.Path)
			}
		}
	}

	if changes != nil {
		b.WriteString("\n## Recent Changes\n")
		fmt.Fprintf(&b, "%d files changed across %d commits since the last generated README.\n",
			changes.FilesChanged, changes.CommitCount)
		if len(changes.ChangedFiles) > 0 {
			b.WriteString("\nChanged files:\n")
			for _, f := range changes.ChangedFiles {
				fmt.Fprintf(&b, "- %s\n", f)
			}
		}
		if len(changes.CommitMessages) > 0 {
			b.WriteString("\nRecent commit messages:\n")
			for _, m := range changes.CommitMessages {
				fmt.Fprintf(&b, "- %s\n", m)
			}
		}
		b.WriteString("\nEmphasize recently changed functionality where relevant.\n")
	}

	b.WriteString(`
## README Instructions

Generate a complete README.md in English that includes:

1. **Title and Description**: A clear title and concise description of what the system/project does, based on code and configuration file analysis.

2. **Features**: List the main features of the system, inferred from the structure and analyzed files.

3. **Technologies Used**: List the technologies, frameworks and libraries used, based on the configuration files found.

4. **Prerequisites**: List the prerequisites needed to run the project (Python, Node.js, Docker, etc.).

5. **How to Run Locally**:
   - Detailed step-by-step instructions to set up and run the project locally
   - How to install dependencies
   - How to configure environment variables (if necessary)
   - How to run the server/application
   - How to run tests (if applicable)

6. **Project Structure**: A brief explanation of the directory structure.

7. **Configuration**: Instructions about important configuration files (.env, config files, etc.).

Use appropriate Markdown formatting. Be specific and practical in execution instructions. If you cannot infer specific information from the code, use generic examples appropriate for the detected language/technology.

IMPORTANT: Focus especially on the "How to Run Locally" section - it must be clear, complete and follow best practices for the detected project type.
`)

	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
