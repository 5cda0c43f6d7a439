package git

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileKind classifies file tree entries. The set is closed; names that match
// no pattern are KindUnknown.
type FileKind string

const (
	KindFolder     FileKind = "folder"
	KindSubmodule  FileKind = "submodule"
	KindUnknown    FileKind = "unknown"
	KindReadme     FileKind = "readme"
	KindLicense    FileKind = "license"
	KindDocker     FileKind = "docker"
	KindMakefile   FileKind = "makefile"
	KindLockfile   FileKind = "lockfile"
	KindGitConfig  FileKind = "git"
	KindGo         FileKind = "go"
	KindRust       FileKind = "rust"
	KindTypeScript FileKind = "typescript"
	KindJavaScript FileKind = "javascript"
	KindPython     FileKind = "python"
	KindJava       FileKind = "java"
	KindKotlin     FileKind = "kotlin"
	KindC          FileKind = "c"
	KindCpp        FileKind = "cpp"
	KindCSharp     FileKind = "csharp"
	KindRuby       FileKind = "ruby"
	KindPHP        FileKind = "php"
	KindSwift      FileKind = "swift"
	KindShell      FileKind = "shell"
	KindHTML       FileKind = "html"
	KindStyle      FileKind = "style"
	KindMarkdown   FileKind = "markdown"
	KindText       FileKind = "text"
	KindJSON       FileKind = "json"
	KindYAML       FileKind = "yaml"
	KindTOML       FileKind = "toml"
	KindXML        FileKind = "xml"
	KindSQL        FileKind = "sql"
	KindImage      FileKind = "image"
	KindAudio      FileKind = "audio"
	KindVideo      FileKind = "video"
	KindFont       FileKind = "font"
	KindArchive    FileKind = "archive"
	KindPDF        FileKind = "pdf"
)

type kindMatcher struct {
	kind    FileKind
	matcher *ignore.GitIgnore
}

// kindPatterns is ordered: the first matching entry wins, so exact names come
// before extensions.
var kindPatterns = []struct {
	kind     FileKind
	patterns []string
}{
	{KindReadme, []string{"readme", "readme.*"}},
	{KindLicense, []string{"license", "license.*", "licence", "licence.*", "copying", "copying.*"}},
	{KindDocker, []string{"dockerfile", "dockerfile.*", "*.dockerfile", ".dockerignore", "docker-compose*.yml", "docker-compose*.yaml"}},
	{KindMakefile, []string{"makefile", "gnumakefile", "*.mk", "justfile"}},
	{KindLockfile, []string{"*.lock", "go.sum", "package-lock.json", "pnpm-lock.yaml", "yarn.lock"}},
	{KindGitConfig, []string{".gitignore", ".gitattributes", ".gitmodules", ".gitkeep"}},
	{KindGo, []string{"*.go", "go.mod", "go.work"}},
	{KindRust, []string{"*.rs"}},
	{KindTypeScript, []string{"*.ts", "*.tsx", "*.mts", "*.cts"}},
	{KindJavaScript, []string{"*.js", "*.jsx", "*.mjs", "*.cjs"}},
	{KindPython, []string{"*.py", "*.pyi", "*.pyx"}},
	{KindJava, []string{"*.java", "*.gradle"}},
	{KindKotlin, []string{"*.kt", "*.kts"}},
	{KindC, []string{"*.c", "*.h"}},
	{KindCpp, []string{"*.cc", "*.cpp", "*.cxx", "*.hh", "*.hpp", "*.hxx"}},
	{KindCSharp, []string{"*.cs", "*.csproj", "*.sln"}},
	{KindRuby, []string{"*.rb", "gemfile", "rakefile"}},
	{KindPHP, []string{"*.php"}},
	{KindSwift, []string{"*.swift"}},
	{KindShell, []string{"*.sh", "*.bash", "*.zsh", "*.fish", "*.ps1", "*.bat", "*.cmd"}},
	{KindHTML, []string{"*.html", "*.htm", "*.vue", "*.svelte"}},
	{KindStyle, []string{"*.css", "*.scss", "*.sass", "*.less"}},
	{KindMarkdown, []string{"*.md", "*.markdown", "*.mdx", "*.rst", "*.adoc"}},
	{KindText, []string{"*.txt", "*.log", "*.csv", "*.tsv"}},
	{KindJSON, []string{"*.json", "*.jsonc", "*.json5"}},
	{KindYAML, []string{"*.yml", "*.yaml"}},
	{KindTOML, []string{"*.toml", "*.ini", "*.cfg", "*.conf", ".editorconfig"}},
	{KindXML, []string{"*.xml", "*.xsd", "*.xsl"}},
	{KindSQL, []string{"*.sql"}},
	{KindImage, []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.bmp", "*.ico", "*.webp", "*.svg", "*.tif", "*.tiff", "*.avif"}},
	{KindAudio, []string{"*.mp3", "*.wav", "*.ogg", "*.flac", "*.m4a"}},
	{KindVideo, []string{"*.mp4", "*.mov", "*.webm", "*.mkv", "*.avi"}},
	{KindFont, []string{"*.ttf", "*.otf", "*.woff", "*.woff2", "*.eot"}},
	{KindArchive, []string{"*.zip", "*.tar", "*.gz", "*.tgz", "*.bz2", "*.xz", "*.7z", "*.rar", "*.jar"}},
	{KindPDF, []string{"*.pdf"}},
}

var kindMatchers = compileKindMatchers()

func compileKindMatchers() []kindMatcher {
	out := make([]kindMatcher, 0, len(kindPatterns))
	for _, kp := range kindPatterns {
		out = append(out, kindMatcher{kind: kp.kind, matcher: ignore.CompileIgnoreLines(kp.patterns...)})
	}
	return out
}

// ClassifyFile returns the kind of a file by its base name, case-insensitively.
func ClassifyFile(name string) FileKind {
	name = strings.ToLower(name)
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return KindUnknown
	}
	for _, m := range kindMatchers {
		if m.matcher.MatchesPath(name) {
			return m.kind
		}
	}
	return KindUnknown
}
