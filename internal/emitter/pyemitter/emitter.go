package pyemitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	genspec "github.com/oselz/swagger2client/internal/spec"
)

// Options controls how the Python emitter renders a client project.
type Options struct {
	OutDir      string // required; target directory to write the project
	ClientName  string // client class name; defaults to APIClient
	PackageName string // Python module name; derived from the spec title when empty
	Force       bool   // overwrite existing files
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
}

// Result returns the planned files and final resolved names.
type Result struct {
	ClientName  string
	PackageName string
	Planned     []PlannedFile
}

// Emit renders the Python client project for an already-ordered ClientModel.
func Emit(ctx context.Context, cm *genspec.ClientModel, opts Options) (*Result, error) {
	_ = ctx
	if cm == nil {
		return nil, fmt.Errorf("pyemitter: nil ClientModel")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("pyemitter: OutDir is required")
	}

	clientName := className(strings.TrimSpace(opts.ClientName))
	if strings.TrimSpace(opts.ClientName) == "" {
		clientName = "APIClient"
	}
	packageName := sanitizePackageName(opts.PackageName)
	if packageName == "" {
		packageName = sanitizePackageName(cm.Title)
	}
	if packageName == "" {
		packageName = "api_client"
	}

	rendered := *cm
	rendered.ClassName = clientName

	files := map[string][]byte{
		packageName + ".py": []byte(Render(&rendered)),
		"requirements.txt":  []byte("requests>=2.31.0\n"),
		"README.md":         []byte(renderReadme(&rendered, packageName)),
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel])})
	}

	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("pyemitter: resolve output directory: %w", err)
	}
	if err := validateOutputDirectory(abs, opts.Force); err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if err := writeFiles(abs, files); err != nil {
			return nil, err
		}
	}

	return &Result{ClientName: clientName, PackageName: packageName, Planned: planned}, nil
}

// validateOutputDirectory checks whether the output directory can be
// written: missing is fine, non-empty needs force.
func validateOutputDirectory(absPath string, force bool) error {
	stat, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access output directory %q: %w", absPath, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("output path %q is not a directory", absPath)
	}
	if force {
		return nil
	}
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return fmt.Errorf("cannot read output directory %q: %w", absPath, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("output directory %q is not empty (use --force to overwrite)", absPath)
	}
	return nil
}

func writeFiles(abs string, files map[string][]byte) error {
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("pyemitter: create output directory: %w", err)
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("pyemitter: write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("pyemitter: rename %s: %w", rel, err)
		}
	}
	return nil
}

func renderReadme(cm *genspec.ClientModel, packageName string) string {
	title := strings.TrimSpace(cm.Title)
	if title == "" {
		title = "API"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s client\n\n", title)
	fmt.Fprintf(&b, "Typed Python client generated by swagger2client. Install the single\nruntime dependency and import `%s`.\n\n", packageName)
	b.WriteString("```bash\npip install -r requirements.txt\n```\n\n")
	b.WriteString("```python\n")
	fmt.Fprintf(&b, "from %s import %s\n\n", packageName, cm.ClassName)
	if cm.BaseURL != "" {
		fmt.Fprintf(&b, "client = %s()  # defaults to %s\n", cm.ClassName, cm.BaseURL)
	} else {
		fmt.Fprintf(&b, "client = %s(\"https://api.example.com\")\n", cm.ClassName)
	}
	b.WriteString("```\n\n")
	b.WriteString("Pass `api_key=\"...\"` to send a bearer `Authorization` header. Every\nmethod returns the parsed JSON body, for error responses as well; check\nthe returned shape before using it.\n")
	return b.String()
}

func sanitizePackageName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}
