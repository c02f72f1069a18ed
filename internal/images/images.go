// Package images downloads and stores the images referenced by a model
// answer.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/sozercan/gemini-mole/apimodels"
)

var ErrNoImages = errors.New("no images to fetch")

// Ref is an image to download together with the cookies it needs.
type Ref struct {
	URL     string
	Title   string
	Cookies map[string]string
}

// Refs collects the web and generated images of the chosen candidate.
func Refs(out *apimodels.ModelOutput) []Ref {
	var refs []Ref
	for _, img := range out.WebImages() {
		refs = append(refs, Ref{URL: img.URL, Title: img.Title})
	}
	for _, img := range out.GeneratedImages() {
		refs = append(refs, Ref{URL: img.URL, Title: img.Title, Cookies: img.Cookies})
	}
	return refs
}

func Validate(refs []Ref) error {
	if len(refs) == 0 {
		return ErrNoImages
	}
	for i, r := range refs {
		if r.URL == "" {
			return fmt.Errorf("image %d has no url", i)
		}
	}
	return nil
}

// Image is a downloaded image.
type Image struct {
	Title string
	Data  []byte
}

type Fetcher struct {
	httpClient  *http.Client
	concurrency int
}

func NewFetcher(httpClient *http.Client, concurrency int) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{httpClient: httpClient, concurrency: concurrency}
}

// Fetch downloads refs concurrently. Failed downloads are logged and left
// out of the result.
func (f *Fetcher) Fetch(ctx context.Context, refs []Ref) ([]Image, error) {
	if err := Validate(refs); err != nil {
		return nil, err
	}

	p := pool.NewWithResults[*Image]().WithContext(ctx).WithMaxGoroutines(f.concurrency)
	for _, ref := range refs {
		ref := ref
		p.Go(func(ctx context.Context) (*Image, error) {
			data, err := f.fetchOne(ctx, ref)
			if err != nil {
				slog.Warn("Failed to fetch image", "url", ref.URL, "error", err)
				return nil, nil
			}
			return &Image{Title: ref.Title, Data: data}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	var out []Image
	for _, img := range results {
		if img != nil {
			out = append(out, *img)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, ref Ref) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, err
	}
	for name, value := range ref.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns "<title>_<timestamp>.jpg" with the title reduced to
// filesystem-safe characters.
func Filename(title string, now time.Time) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(title, "_"), "_")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s_%s.jpg", name, now.Format("20060102150405"))
}

// Save writes images into dir and returns the written paths. Images that
// would share a name get a numeric suffix.
func Save(dir string, imgs []Image) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	now := time.Now()
	seen := map[string]int{}
	paths := make([]string, 0, len(imgs))
	for _, img := range imgs {
		name := Filename(img.Title, now)
		if n := seen[name]; n > 0 {
			name = strings.TrimSuffix(name, ".jpg") + fmt.Sprintf("_%d.jpg", n)
		}
		seen[Filename(img.Title, now)]++

		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	slog.Info("Saved images", "dir", dir, "count", len(paths))
	return paths, nil
}
