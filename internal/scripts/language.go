// Package scripts detects executable helper scripts inside skill directories
// and runs them through a validated, resource-bounded execution pipeline.
package scripts

import "strings"

// Language identifies the interpreter family a script belongs to. Detection
// assigns the language once, from the file extension; everything downstream
// dispatches on the tag, never on the file again.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageShell      Language = "shell"
	LanguageJavaScript Language = "javascript"
	LanguageRuby       Language = "ruby"
	LanguagePerl       Language = "perl"
	LanguageBatch      Language = "batch"
	LanguagePowerShell Language = "powershell"
)

var extensionLanguages = map[string]Language{
	".py":  LanguagePython,
	".sh":  LanguageShell,
	".js":  LanguageJavaScript,
	".rb":  LanguageRuby,
	".pl":  LanguagePerl,
	".bat": LanguageBatch,
	".cmd": LanguageBatch,
	".ps1": LanguagePowerShell,
}

// LanguageForExtension maps a file extension such as ".py" to its language.
// The match is case-insensitive.
func LanguageForExtension(ext string) (Language, bool) {
	lang, ok := extensionLanguages[strings.ToLower(ext)]
	return lang, ok
}

func (l Language) String() string { return string(l) }
