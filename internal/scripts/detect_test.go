package scripts

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func mkdirAll(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	return path
}

func descriptorByName(list []*ScriptDescriptor, name string) *ScriptDescriptor {
	for _, d := range list {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func TestDetectSupportedLanguagesAndNesting(t *testing.T) {
	base := t.TempDir()

	// One script per supported language at the skill root.
	writeScript(t, base, "a.py", "print(1)\n")
	writeScript(t, base, "b.sh", "echo hi\n")
	writeScript(t, base, "c.js", "console.log(1)\n")
	writeScript(t, base, "d.rb", "puts 1\n")
	writeScript(t, base, "e.pl", "print 1;\n")
	writeScript(t, base, "f.bat", "@echo off\n")
	writeScript(t, base, "g.ps1", "Write-Host hi\n")

	// Two more nested three levels deep inside scripts/.
	nested := mkdirAll(t, filepath.Join(base, "scripts", "one", "two", "three"))
	writeScript(t, nested, "deep1.py", "print(2)\n")
	writeScript(t, nested, "deep2.sh", "echo deep\n")

	// Non-candidates.
	writeScript(t, base, "notes.txt", "not a script\n")
	writeScript(t, base, ".hidden.py", "print(3)\n")
	writeScript(t, mkdirAll(t, filepath.Join(base, "scripts", "node_modules")), "dep.js", "x\n")
	writeScript(t, mkdirAll(t, filepath.Join(base, "scripts", "__pycache__")), "cached.py", "x\n")
	writeScript(t, mkdirAll(t, filepath.Join(base, "docs")), "guide.py", "ignored, root scan is flat\n")

	found := Detect(base)
	if len(found) != 9 {
		names := make([]string, 0, len(found))
		for _, d := range found {
			names = append(names, d.RelativePath)
		}
		t.Fatalf("detected %d scripts %v, want 9", len(found), names)
	}

	wantLangs := map[string]Language{
		"a": LanguagePython, "b": LanguageShell, "c": LanguageJavaScript,
		"d": LanguageRuby, "e": LanguagePerl, "f": LanguageBatch, "g": LanguagePowerShell,
		"deep1": LanguagePython, "deep2": LanguageShell,
	}
	for name, lang := range wantLangs {
		d := descriptorByName(found, name)
		if d == nil {
			t.Fatalf("script %q not detected", name)
		}
		if d.Language != lang {
			t.Fatalf("script %q language = %q, want %q", name, d.Language, lang)
		}
		if filepath.IsAbs(d.RelativePath) {
			t.Fatalf("script %q has absolute RelativePath %q", name, d.RelativePath)
		}
	}
	if d := descriptorByName(found, "deep1"); d.RelativePath != "scripts/one/two/three/deep1.py" {
		t.Fatalf("nested RelativePath = %q", d.RelativePath)
	}
}

func TestDetectDepthBound(t *testing.T) {
	base := t.TempDir()

	atLimit := mkdirAll(t, filepath.Join(base, "scripts", "1", "2", "3", "4"))
	writeScript(t, atLimit, "limit.py", "print(1)\n")

	tooDeep := mkdirAll(t, filepath.Join(base, "scripts", "1", "2", "3", "4", "5"))
	writeScript(t, tooDeep, "deep.py", "print(1)\n")

	found := Detect(base)
	if descriptorByName(found, "limit") == nil {
		t.Fatal("script at the depth limit should be detected")
	}
	if descriptorByName(found, "deep") != nil {
		t.Fatal("script past the depth limit should be skipped")
	}
}

func TestDetectScriptsDirBeforeRootOnNameCollision(t *testing.T) {
	base := t.TempDir()
	scriptsDir := mkdirAll(t, filepath.Join(base, "scripts"))
	writeScript(t, scriptsDir, "convert.py", "print('scripts dir')\n")
	writeScript(t, base, "convert.sh", "echo root\n")

	found := Detect(base)
	d := descriptorByName(found, "convert")
	if d == nil {
		t.Fatal("convert not detected")
	}
	if d.RelativePath != "scripts/convert.py" {
		t.Fatalf("first-found should win, got %q", d.RelativePath)
	}
	count := 0
	for _, e := range found {
		if e.Name == "convert" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicate name appears %d times", count)
	}
}

func TestDetectSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}
	base := t.TempDir()
	real := writeScript(t, base, "real.sh", "echo hi\n")
	if err := os.Symlink(real, filepath.Join(base, "alias.sh")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	outside := writeScript(t, t.TempDir(), "outside.py", "print(1)\n")
	if err := os.Symlink(outside, filepath.Join(base, "sneaky.py")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	found := Detect(base)
	if len(found) != 1 || found[0].Name != "real" {
		names := make([]string, 0, len(found))
		for _, d := range found {
			names = append(names, d.Name)
		}
		t.Fatalf("detected %v, want only real", names)
	}
}

func TestDetectMissingDirectory(t *testing.T) {
	if found := Detect(filepath.Join(t.TempDir(), "nope")); len(found) != 0 {
		t.Fatalf("missing directory should yield an empty list, got %d entries", len(found))
	}
}

func TestDetectEmptySkill(t *testing.T) {
	if found := Detect(t.TempDir()); len(found) != 0 {
		t.Fatalf("empty skill should yield an empty list, got %d entries", len(found))
	}
}

func TestDetectLazyDescriptions(t *testing.T) {
	base := t.TempDir()
	path := writeScript(t, base, "lazy.py", "# First pass.\nprint(1)\n")

	found := Detect(base)
	d := descriptorByName(found, "lazy")
	if d == nil {
		t.Fatal("lazy not detected")
	}

	// The scan must not have read the file body: rewriting before the first
	// Description call changes the observed text.
	if err := os.WriteFile(path, []byte("# Second pass.\nprint(1)\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := d.Description(); got != "Second pass." {
		t.Fatalf("description = %q, extraction ran during the scan", got)
	}
}
