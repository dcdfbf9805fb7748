// Package repo gathers bounded context from the analyzed repository: a
// manifest excerpt, a source file listing, and route/page file contents.
// Everything is read-only and clipped to fixed budgets so the generation
// requests stay bounded.
package repo

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const (
	manifestBudget = 3000
	listingBudget  = 5000
	maxRouteFiles  = 20
	routeFileLimit = 10000
	routeFileLines = 200
)

var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".vue": true, ".svelte": true, ".css": true, ".scss": true,
}

var skipDirs = map[string]bool{
	"node_modules": true, ".next": true, "dist": true, ".git": true,
}

// routeDirs are the path segments marking route/page source files.
var routeDirs = []string{"pages", "app", "views", "routes"}

// EnsureCloned shallow-clones the target repo if it is not already present.
// A GITHUB_TOKEN in the environment is used for private repos. Failure is
// not fatal: the pipeline continues without code context.
func EnsureCloned(repoSlug, cloneDir string) bool {
	if _, err := os.Stat(cloneDir); err == nil {
		log.Printf("Target repo already cloned at %s", cloneDir)
		return true
	}

	cloneURL := fmt.Sprintf("https://github.com/%s.git", repoSlug)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cloneURL = fmt.Sprintf("https://%s@github.com/%s.git", token, repoSlug)
	}

	log.Printf("Cloning %s to %s...", repoSlug, cloneDir)
	cmd := exec.Command("git", "clone", cloneURL, cloneDir, "--depth", "1")
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Printf("Could not clone repo: %v", err)
		log.Printf("  Pipeline will continue without code mapping.")
		return false
	}
	return true
}

// MissingContext is the stand-in used when no clone is available.
func MissingContext(repoSlug string) string {
	return fmt.Sprintf("## Target Repository: %s\n\n_Repository not available locally. Code mapping will be based on URL patterns only._", repoSlug)
}

// BuildContext assembles the repository context block: the manifest
// (clipped to 3,000 chars) and the sorted source file listing (clipped to
// 5,000 chars).
func BuildContext(repoDir, repoSlug string) string {
	manifest := ""
	if data, err := os.ReadFile(filepath.Join(repoDir, "package.json")); err == nil {
		manifest = string(data)
	}

	files := listSourceFiles(repoDir)
	listing := strings.Join(files, "\n")
	if listing == "" {
		listing = "(could not list files)"
	}

	return fmt.Sprintf("## Target Repository: %s\n\n### package.json\n```json\n%s\n```\n\n### Source Files\n```\n%s\n```",
		repoSlug, clip(manifest, manifestBudget), clip(listing, listingBudget))
}

// RouteFilesContent concatenates the first 20 route/page source files. A
// file under the size threshold is included whole; larger files contribute
// their first 200 lines with a note.
func RouteFilesContent(repoDir string) string {
	paths := listRouteFiles(repoDir)
	if len(paths) > maxRouteFiles {
		paths = paths[:maxRouteFiles]
	}

	var b strings.Builder
	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(repoDir, rel))
		if err != nil {
			continue
		}
		content := string(data)
		if len(content) < routeFileLimit {
			fmt.Fprintf(&b, "\n### %s\n```tsx\n%s\n```\n", rel, content)
		} else {
			lines := strings.Split(content, "\n")
			if len(lines) > routeFileLines {
				lines = lines[:routeFileLines]
			}
			fmt.Fprintf(&b, "\n### %s (first %d lines)\n```tsx\n%s\n```\n", rel, routeFileLines, strings.Join(lines, "\n"))
		}
	}

	if b.Len() == 0 {
		return "(could not read route files)"
	}
	return b.String()
}

// listSourceFiles walks the tree collecting source files, skipping
// dependency and build directories.
func listSourceFiles(repoDir string) []string {
	var files []string
	filepath.WalkDir(repoDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files
}

// listRouteFiles returns source files living under a route directory
// (pages/, app/, views/, routes/).
func listRouteFiles(repoDir string) []string {
	var routes []string
	for _, rel := range listSourceFiles(repoDir) {
		ext := filepath.Ext(rel)
		if ext == ".css" || ext == ".scss" || ext == ".svelte" {
			continue
		}
		segments := strings.Split(rel, "/")
		for _, seg := range segments[:max(len(segments)-1, 0)] {
			if isRouteDir(seg) {
				routes = append(routes, rel)
				break
			}
		}
	}
	return routes
}

func isRouteDir(name string) bool {
	for _, d := range routeDirs {
		if name == d {
			return true
		}
	}
	return false
}

// clip truncates s to at most n characters.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
