package aggregate

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/person-search/internal/model"
)

// DedupPhotos keeps the first photo per DedupKey and drops photos without
// a URL. It is idempotent.
func DedupPhotos(photos []model.Photo) []model.Photo {
	seen := make(map[string]bool, len(photos))
	out := make([]model.Photo, 0, len(photos))
	for _, p := range photos {
		key := p.DedupKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// DedupProfiles keeps the first profile per platform. Discovery order
// decides which source wins.
func DedupProfiles(profiles []model.SocialProfile) []model.SocialProfile {
	seen := make(map[model.Platform]bool, len(profiles))
	out := make([]model.SocialProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.Platform == "" || seen[p.Platform] {
			continue
		}
		seen[p.Platform] = true
		out = append(out, p)
	}
	return out
}

// capPhotos keeps at most n photos.
func capPhotos(photos []model.Photo, n int) []model.Photo {
	if n > 0 && len(photos) > n {
		return photos[:n]
	}
	return photos
}

// validatePhotos drops photos that fail the download and face checks.
// Candidate-selection photos are exempt. Order is preserved.
func (a *Aggregator) validatePhotos(ctx context.Context, photos []model.Photo) []model.Photo {
	keep := make([]bool, len(photos))
	var g errgroup.Group
	g.SetLimit(a.cfg.ProxyConcurrency)
	for i, p := range photos {
		if p.FromCandidateSelection() {
			keep[i] = true
			continue
		}
		g.Go(func() error {
			keep[i] = a.deps.Faces.ValidateImage(ctx, p.URL)
			return nil
		})
	}
	_ = g.Wait()
	return filter(photos, keep)
}

// VerifyPhotos keeps photos whose similarity to reference reaches the
// face service's threshold and marks them verified. Candidate-selection
// photos pass unscored.
func (a *Aggregator) VerifyPhotos(ctx context.Context, photos []model.Photo, reference []byte) []model.Photo {
	threshold := a.deps.Faces.Threshold()
	keep := make([]bool, len(photos))
	scored := make([]model.Photo, len(photos))
	copy(scored, photos)

	var g errgroup.Group
	g.SetLimit(a.cfg.ProxyConcurrency)
	for i := range scored {
		if scored[i].FromCandidateSelection() {
			keep[i] = true
			continue
		}
		g.Go(func() error {
			sim := a.deps.Faces.Compare(ctx, reference, scored[i].URL)
			if sim >= threshold {
				scored[i].Verified = true
				scored[i].Similarity = &sim
				keep[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()
	return filter(scored, keep)
}

// proxy re-hosts every photo and profile picture. A photo whose proxy
// fails is dropped unless it came from candidate selection; a profile
// picture that fails is cleared.
func (a *Aggregator) proxy(ctx context.Context, photos []model.Photo, profiles []model.SocialProfile) ([]model.Photo, []model.SocialProfile) {
	if a.deps.Proxy == nil {
		return photos, profiles
	}

	urls := make(map[string]struct{})
	for _, p := range photos {
		urls[p.URL] = struct{}{}
	}
	for _, sp := range profiles {
		if sp.ProfilePic != "" {
			urls[sp.ProfilePic] = struct{}{}
		}
	}
	if len(urls) == 0 {
		return photos, profiles
	}

	var (
		mu      sync.Mutex
		proxied = make(map[string]string, len(urls))
	)
	var g errgroup.Group
	g.SetLimit(a.cfg.ProxyConcurrency)
	for u := range urls {
		g.Go(func() error {
			internal, err := a.deps.Proxy.Proxy(ctx, u)
			if err != nil || internal == "" {
				zap.L().Debug("aggregate: proxy failed", zap.String("url", u), zap.Error(err))
				return nil
			}
			mu.Lock()
			proxied[u] = internal
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	outPhotos := make([]model.Photo, 0, len(photos))
	for _, p := range photos {
		if internal, ok := proxied[p.URL]; ok {
			p.URL = internal
			outPhotos = append(outPhotos, p)
			continue
		}
		if p.FromCandidateSelection() {
			outPhotos = append(outPhotos, p)
		}
	}

	outProfiles := make([]model.SocialProfile, len(profiles))
	for i, sp := range profiles {
		if sp.ProfilePic != "" {
			sp.ProfilePic = proxied[sp.ProfilePic]
		}
		outProfiles[i] = sp
	}

	zap.L().Info("aggregate: images proxied",
		zap.Int("unique", len(urls)),
		zap.Int("ok", len(proxied)),
		zap.Int("photos_kept", len(outPhotos)),
	)
	return outPhotos, outProfiles
}

func filter[T any](items []T, keep []bool) []T {
	out := make([]T, 0, len(items))
	for i, it := range items {
		if keep[i] {
			out = append(out, it)
		}
	}
	return out
}
