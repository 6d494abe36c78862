// Package viewset finds the rendered view images of a rig in a directory and
// keeps their decoded pixels cached between frames.
package viewset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
)

// ErrDuplicateIndex is returned when two files claim the same view index.
var ErrDuplicateIndex = errors.New("duplicate view index")

// View is one discovered view image.
type View struct {
	Index int
	Path  string
}

var digits = regexp.MustCompile(`\d+`)

// indexFromName returns the last run of digits in the file stem, so
// "cam2_view_07.png" reads as view 7.
func indexFromName(name string) (int, bool) {
	stem := name[:len(name)-len(filepath.Ext(name))]
	all := digits.FindAllString(stem, -1)
	if len(all) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(all[len(all)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Scan lists the image files directly inside dir. Files are recognised by
// their header, except TGA which is taken by extension. Views are numbered by the digits in their names
// when every file has them, otherwise by lexical order of the names.
func Scan(dir string) ([]View, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("viewset: read %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ok, err := isImage(path)
		if err != nil {
			return nil, err
		}
		if ok {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	views := make([]View, len(paths))
	numbered := true
	for i, p := range paths {
		n, ok := indexFromName(filepath.Base(p))
		if !ok {
			numbered = false
			break
		}
		views[i] = View{Index: n, Path: p}
	}
	if !numbered {
		for i, p := range paths {
			views[i] = View{Index: i, Path: p}
		}
		return views, nil
	}

	sort.SliceStable(views, func(a, b int) bool { return views[a].Index < views[b].Index })
	for i := 1; i < len(views); i++ {
		if views[i].Index == views[i-1].Index {
			return nil, fmt.Errorf("viewset: %s and %s: %w %d",
				filepath.Base(views[i-1].Path), filepath.Base(views[i].Path), ErrDuplicateIndex, views[i].Index)
		}
	}
	return views, nil
}

// isImage sniffs the file header.
func isImage(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("viewset: open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("viewset: read %s: %w", path, err)
	}
	head = head[:n]
	if filetype.IsImage(head) {
		return true, nil
	}
	// TGA has no magic number; trust the extension.
	return strings.EqualFold(filepath.Ext(path), ".tga"), nil
}

// Contiguous checks that views are numbered 0..n-1 with no gaps.
func Contiguous(views []View, n int) error {
	if len(views) != n {
		return fmt.Errorf("viewset: found %d views, rig needs %d", len(views), n)
	}
	for i, v := range views {
		if v.Index != i {
			return fmt.Errorf("viewset: expected view %d, found %d (%s)", i, v.Index, filepath.Base(v.Path))
		}
	}
	return nil
}
