// Package setup locates the whisper.cpp engine and fetches speech models.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Paths holds the on-disk layout next to the executable. Keeping the
// engine and models beside the binary makes the install relocatable.
type Paths struct {
	EngineDir string
	ModelsDir string
}

func DefaultPaths() (Paths, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Paths{}, fmt.Errorf("find executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve symlinks: %w", err)
	}
	base := filepath.Dir(execPath)
	return Paths{
		EngineDir: filepath.Join(base, "whisper.cpp"),
		ModelsDir: filepath.Join(base, "models"),
	}, nil
}

// Engine returns the path of the whisper.cpp binary under EngineDir.
func (p Paths) Engine() string {
	name := "main"
	if runtime.GOOS == "windows" {
		name = "main.exe"
	}
	return filepath.Join(p.EngineDir, name)
}

// CheckEngine verifies the engine binary exists and returns build
// instructions when it does not. The engine is a native build the user
// provides once; it is never downloaded.
func CheckEngine(p Paths) error {
	engine := p.Engine()
	if info, err := os.Stat(engine); err == nil && !info.IsDir() {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "whisper.cpp engine not found at %s\n\n", engine)
	b.WriteString("Build it once:\n")
	b.WriteString("  git clone https://github.com/ggerganov/whisper.cpp " + p.EngineDir + "\n")
	switch runtime.GOOS {
	case "windows":
		b.WriteString("  cmake -B " + filepath.Join(p.EngineDir, "build") + " " + p.EngineDir + "\n")
		b.WriteString("  cmake --build " + filepath.Join(p.EngineDir, "build") + " --config Release\n")
		b.WriteString("  copy the built main.exe into " + p.EngineDir + "\n")
	default:
		b.WriteString("  make -C " + p.EngineDir + "\n")
	}
	return fmt.Errorf("%s", b.String())
}

// ModelFile returns the on-disk filename for a short model name like
// "tiny.en" or "base".
func ModelFile(name string) string {
	return "ggml-" + name + ".bin"
}

// ModelPath returns where the named model lives under ModelsDir.
func (p Paths) ModelPath(name string) string {
	return filepath.Join(p.ModelsDir, ModelFile(name))
}

// EnsureModel downloads the named model into ModelsDir unless it is
// already present. Returns the model path.
func EnsureModel(p Paths, name string) (string, error) {
	path := p.ModelPath(name)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	if err := os.MkdirAll(p.ModelsDir, 0755); err != nil {
		return "", fmt.Errorf("create models directory: %w", err)
	}

	url := modelBaseURL + ModelFile(name)
	fmt.Fprintf(os.Stderr, "downloading model %s\n", ModelFile(name))
	if err := download(url, path); err != nil {
		return "", fmt.Errorf("download model %s: %w", name, err)
	}
	return path, nil
}
