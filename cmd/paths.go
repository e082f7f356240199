package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/model"
)

// splitPath turns a slash separated device path into its names
func splitPath(p string) []string {
	var names []string
	for _, name := range strings.Split(p, "/") {
		if name != "" && name != "." {
			names = append(names, name)
		}
	}
	return names
}

// openDir returns a listing of the container at p
func openDir(ctx context.Context, s mtpview.Session, p string) (*model.ObjectList, error) {
	l := model.NewAt(ctx, s, mtpview.Root)
	for _, name := range splitPath(p) {
		idx := l.Find(ctx, name)
		if idx < 0 {
			return nil, fmt.Errorf("%s: %w", p, mtpview.ErrObjectNotFound)
		}
		if !l.Enter(ctx, idx) {
			return nil, fmt.Errorf("%s: %w", p, mtpview.ErrNotContainer)
		}
	}
	return l, nil
}

// resolve returns the listing of the container holding p and the row of p in
// it. The root itself cannot be resolved
func resolve(ctx context.Context, s mtpview.Session, p string) (*model.ObjectList, int, error) {
	names := splitPath(p)
	if len(names) == 0 {
		return nil, -1, fmt.Errorf("%q: the root is not an object", p)
	}
	l, err := openDir(ctx, s, path.Join(names[:len(names)-1]...))
	if err != nil {
		return nil, -1, err
	}
	idx := l.Find(ctx, names[len(names)-1])
	if idx < 0 {
		return nil, -1, fmt.Errorf("%s: %w", p, mtpview.ErrObjectNotFound)
	}
	return l, idx, nil
}

// splitParent splits p into its container path and final name
func splitParent(p string) (dir, name string) {
	names := splitPath(p)
	if len(names) == 0 {
		return "", ""
	}
	return path.Join(names[:len(names)-1]...), names[len(names)-1]
}
