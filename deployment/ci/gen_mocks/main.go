// gen_mocks regenerates the gomock mocks under ./mocks. Run it from the
// module root.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const destDir = "./mocks"

// sources lists the files whose interfaces tests mock.
var sources = []string{
	"internal/gas/client.go",
}

func main() {
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(4)

	for _, src := range sources {
		g.Go(func() error {
			return generate(src)
		})
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("\nTotal execution time: %s\n", time.Since(start))
}

// generate writes mocks/mock<pkg>/mock_<file>.go for src.
func generate(src string) error {
	pkg := "mock" + filepath.Base(filepath.Dir(src))
	file := strings.TrimSuffix(filepath.Base(src), ".go")
	dest := filepath.Join(destDir, pkg, "mock_"+file+".go")

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	cmd := exec.Command("go", "run", "go.uber.org/mock/mockgen@v0.5.2",
		"-source="+src,
		"-destination="+dest,
		"-package="+pkg,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mockgen %s: %w\n%s", src, err, out)
	}

	fmt.Printf("Mock generated: %s\n", dest)
	return nil
}
