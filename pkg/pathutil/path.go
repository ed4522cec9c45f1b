// Package pathutil implements the POSIX-style path normalization used
// everywhere a VFS path is parsed, before routing or any mount I/O.
// Grounded on the traversal-guarding helpers in the reference corpus
// (pkg/utils/path.go's ValidatePath/SecureJoin), generalized here to the
// full normalize/join/resolve/dirname/basename/extname contract spec
// §4.A requires: path handling is the sharp edge of security, so there is
// exactly one normalizer and everything else is built on it.
package pathutil

import "strings"

// Normalize collapses repeated slashes, resolves "." and ".." segments
// (capped at root), strips trailing slashes, and always returns an
// absolute path. Normalize("") is "/".
func Normalize(p string) string {
	segments := strings.Split(p, "/")
	var stack []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}

// Join normalizes the concatenation of a with every element of b in order,
// each joined with a single "/".
func Join(a string, b ...string) string {
	parts := append([]string{a}, b...)
	return Normalize(strings.Join(parts, "/"))
}

// Resolve normalizes base joined with parts, identically to Join. It is
// named separately to read naturally at call sites that start from a
// mount's root rather than an arbitrary path.
func Resolve(base string, parts ...string) string {
	return Join(base, parts...)
}

// Dirname returns the normalized parent of p. Dirname("/") is "/".
func Dirname(p string) string {
	n := Normalize(p)
	if n == "/" {
		return "/"
	}
	idx := strings.LastIndex(n, "/")
	if idx <= 0 {
		return "/"
	}
	return n[:idx]
}

// Basename returns the final path segment of p. Basename("/") is "".
func Basename(p string) string {
	n := Normalize(p)
	if n == "/" {
		return ""
	}
	idx := strings.LastIndex(n, "/")
	return n[idx+1:]
}

// Extname returns everything from (and including) the last "." in p's
// basename, unless the basename starts with "." and has no further ".",
// in which case it is a dotfile with no extension.
func Extname(p string) string {
	base := Basename(p)
	if base == "" {
		return ""
	}
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}

// IsUnderRoot reports whether the normalized form of p lies at or below
// root (both normalized first). This is a structural check only; mounts
// backed by a real filesystem must additionally verify the resolved real
// path (see the LocalDiskMount containment check).
func IsUnderRoot(p, root string) bool {
	np := Normalize(p)
	nr := Normalize(root)
	if nr == "/" {
		return true
	}
	return np == nr || strings.HasPrefix(np, nr+"/")
}

// Split breaks a normalized path into its non-empty segments. Split("/")
// is an empty slice.
func Split(p string) []string {
	n := Normalize(p)
	if n == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(n, "/"), "/")
}

// Depth returns the number of segments in p once normalized. Depth("/")
// is 0.
func Depth(p string) int {
	return len(Split(p))
}
