// Package remote reads a Lean corpus straight from a GitHub repository,
// caching every API response on disk.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fortio.org/log"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// Prefix marks a root argument as a GitHub repository.
const Prefix = "gh:"

// Location identifies a directory in a GitHub repository:
// gh:owner/repo[@ref][/dir]. Refs containing "/" are not supported.
type Location struct {
	Owner string
	Repo  string
	Ref   string // default branch when empty
	Dir   string // repository root when empty
}

func (l Location) String() string {
	out := Prefix + l.Owner + "/" + l.Repo
	if l.Ref != "" {
		out += "@" + l.Ref
	}
	if l.Dir != "" {
		out += "/" + l.Dir
	}
	return out
}

// IsLocation reports whether arg names a GitHub source.
func IsLocation(arg string) bool {
	return strings.HasPrefix(arg, Prefix)
}

// ParseLocation parses gh:owner/repo[@ref][/dir].
func ParseLocation(arg string) (Location, error) {
	rest, ok := strings.CutPrefix(arg, Prefix)
	if !ok {
		return Location{}, fmt.Errorf("%q: missing %s prefix", arg, Prefix)
	}
	owner, rest, ok := strings.Cut(rest, "/")
	if !ok || owner == "" || rest == "" {
		return Location{}, fmt.Errorf("%q: want %sowner/repo[@ref][/dir]", arg, Prefix)
	}
	s := Location{Owner: owner}
	repoRef, dir, _ := strings.Cut(rest, "/")
	s.Repo, s.Ref, _ = strings.Cut(repoRef, "@")
	s.Dir = strings.Trim(dir, "/")
	if s.Repo == "" {
		return Location{}, fmt.Errorf("%q: empty repository name", arg)
	}
	return s, nil
}

// isNotFoundError checks if an error is a GitHub API 404 Not Found error.
func isNotFoundError(err error) bool {
	var ge *github.ErrorResponse
	if errors.As(err, &ge) && ge.Response != nil {
		// 403 is also what private repositories answer without credentials.
		return ge.Response.StatusCode == http.StatusNotFound || ge.Response.StatusCode == http.StatusForbidden
	}
	return false
}

// Client wraps the GitHub client and its response cache.
type Client struct {
	gh    *github.Client
	cache *Cache
}

// NewClient builds an API client, authenticated when token is set.
func NewClient(ctx context.Context, token string, cache *Cache) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		log.Infof("Using authenticated GitHub API access.")
	} else {
		log.Warnf("%s not set. Using unauthenticated GitHub access (may hit rate limits).", "GITHUB_TOKEN")
	}
	return NewClientWith(github.NewClient(httpClient), cache)
}

// NewClientWith wraps an existing GitHub client.
func NewClientWith(gh *github.Client, cache *Cache) *Client {
	return &Client{gh: gh, cache: cache}
}

func (c *Client) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	keyParts := []string{"GetRepo", owner, repo}
	cacheKey := c.cache.key(keyParts...)
	var cached CachedRepo
	hit, err := c.cache.read(cacheKey, &cached)
	if err != nil {
		log.Errf("Error reading cache for %v: %v", keyParts, err)
	}
	if hit {
		log.LogVf("Cache hit for GetRepo %s/%s", owner, repo)
		if !cached.Found {
			return "", fmt.Errorf("repository %s/%s not found", owner, repo)
		}
		return cached.DefaultBranch, nil
	}
	log.Infof("Cache miss for GetRepo %s/%s, calling API", owner, repo)
	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		if isNotFoundError(err) {
			if werr := c.cache.write(cacheKey, CachedRepo{Found: false}); werr != nil {
				log.Errf("Error writing 'Not Found' cache for %v: %v", keyParts, werr)
			}
			return "", fmt.Errorf("repository %s/%s not found: %w", owner, repo, err)
		}
		return "", err
	}
	cached = CachedRepo{Found: true, DefaultBranch: r.GetDefaultBranch()}
	if werr := c.cache.write(cacheKey, cached); werr != nil {
		log.Errf("Error writing cache for %v: %v", keyParts, werr)
	}
	return cached.DefaultBranch, nil
}

func (c *Client) tree(ctx context.Context, owner, repo, ref string) (*CachedTree, error) {
	keyParts := []string{"GetTree", owner, repo, ref}
	cacheKey := c.cache.key(keyParts...)
	var cached CachedTree
	hit, err := c.cache.read(cacheKey, &cached)
	if err != nil {
		log.Errf("Error reading cache for %v: %v", keyParts, err)
	}
	if hit {
		log.LogVf("Cache hit for GetTree %s/%s@%s", owner, repo, ref)
		return &cached, nil
	}
	log.Infof("Cache miss for GetTree %s/%s@%s, calling API", owner, repo, ref)
	t, _, err := c.gh.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, err
	}
	cached = CachedTree{Truncated: t.GetTruncated()}
	for _, e := range t.Entries {
		if e.GetType() != "blob" {
			continue
		}
		cached.Entries = append(cached.Entries, CachedTreeEntry{Path: e.GetPath(), SHA: e.GetSHA()})
	}
	if werr := c.cache.write(cacheKey, cached); werr != nil {
		log.Errf("Error writing cache for %v: %v", keyParts, werr)
	}
	return &cached, nil
}

func (c *Client) blob(ctx context.Context, owner, repo, sha string) ([]byte, error) {
	// Blobs are content addressed, so the repository is not part of the key.
	keyParts := []string{"GetBlobRaw", sha}
	cacheKey := c.cache.key(keyParts...)
	var cached CachedBlob
	hit, err := c.cache.read(cacheKey, &cached)
	if err != nil {
		log.Errf("Error reading cache for %v: %v", keyParts, err)
	}
	if hit {
		log.LogVf("Cache hit for blob %s", sha)
		return cached.Data, nil
	}
	log.LogVf("Cache miss for blob %s in %s/%s, calling API", sha, owner, repo)
	data, _, err := c.gh.Git.GetBlobRaw(ctx, owner, repo, sha)
	if err != nil {
		return nil, err
	}
	if werr := c.cache.write(cacheKey, CachedBlob{Data: data}); werr != nil {
		log.Errf("Error writing cache for %v: %v", keyParts, werr)
	}
	return data, nil
}

// Source is a directory of a GitHub repository, usable as a scan.Source.
type Source struct {
	c     *Client
	loc   Location
	blobs map[string]string // path relative to loc.Dir -> blob SHA
}

// Source returns the source for loc. The file list is fetched by List.
func (c *Client) Source(loc Location) *Source {
	return &Source{c: c, loc: loc}
}

func (s *Source) Root() string {
	return s.loc.String()
}

// List fetches the recursive tree of the ref (resolving the default branch
// first if needed) and returns the blobs under the location directory.
func (s *Source) List(ctx context.Context) ([]string, error) {
	ref := s.loc.Ref
	if ref == "" {
		branch, err := s.c.defaultBranch(ctx, s.loc.Owner, s.loc.Repo)
		if err != nil {
			return nil, err
		}
		ref = branch
	}
	t, err := s.c.tree(ctx, s.loc.Owner, s.loc.Repo, ref)
	if err != nil {
		return nil, err
	}
	if t.Truncated {
		log.Warnf("Tree listing of %s is truncated, some modules will be missing", s.Root())
	}
	prefix := ""
	if s.loc.Dir != "" {
		prefix = s.loc.Dir + "/"
	}
	s.blobs = make(map[string]string)
	var files []string
	for _, e := range t.Entries {
		rel, ok := strings.CutPrefix(e.Path, prefix)
		if !ok {
			continue
		}
		s.blobs[rel] = e.SHA
		files = append(files, rel)
	}
	return files, nil
}

// ReadFile returns the content of a path listed by List. It is safe for
// concurrent use once List returned.
func (s *Source) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	sha, ok := s.blobs[rel]
	if !ok {
		return nil, fmt.Errorf("%s: %s not listed", s.Root(), rel)
	}
	return s.c.blob(ctx, s.loc.Owner, s.loc.Repo, sha)
}
