package sources

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/pkg/apify"
)

//go:embed platforms.yaml
var platformsYAML []byte

const targetPlaceholder = "{target}"

// ActorSpec names the Apify actor for one platform and its input template.
type ActorSpec struct {
	Actor string         `yaml:"actor"`
	Input map[string]any `yaml:"input"`
}

// ActorCatalog maps platforms to actors.
type ActorCatalog map[model.Platform]ActorSpec

// LoadActorCatalog parses a catalog document. An empty document yields
// the embedded default.
func LoadActorCatalog(doc []byte) (ActorCatalog, error) {
	if len(doc) == 0 {
		doc = platformsYAML
	}
	var parsed struct {
		Platforms map[string]ActorSpec `yaml:"platforms"`
	}
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, eris.Wrap(err, "sources: parse actor catalog")
	}
	cat := make(ActorCatalog, len(parsed.Platforms))
	for name, entry := range parsed.Platforms {
		if entry.Actor == "" {
			return nil, eris.Errorf("sources: platform %q has no actor", name)
		}
		cat[model.Platform(name)] = entry
	}
	return cat, nil
}

// Apify scrapes social profiles through Apify actors.
type Apify struct {
	client  apify.Client
	catalog ActorCatalog
	timeout time.Duration
}

// NewApify wires client with catalog. timeout bounds each fetch on our
// side, on top of the actor's own run timeout.
func NewApify(client apify.Client, catalog ActorCatalog, timeout time.Duration) *Apify {
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &Apify{client: client, catalog: catalog, timeout: timeout}
}

// Supports reports whether platform has an actor.
func (a *Apify) Supports(platform model.Platform) bool {
	_, ok := a.catalog[platform]
	return ok
}

// Fetch runs the platform's actor for target.
func (a *Apify) Fetch(ctx context.Context, platform model.Platform, target string) model.ScrapeResult {
	res := model.ScrapeResult{Source: string(platform), Target: target}
	entry, ok := a.catalog[platform]
	if !ok {
		res.Err = eris.Errorf("apify: no actor for %s", platform)
		return res
	}
	if strings.TrimSpace(target) == "" {
		res.Err = eris.Errorf("apify: empty %s target", platform)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	items, err := a.client.RunSync(ctx, entry.Actor, fillTemplate(entry.Input, target))
	if err != nil {
		res.Err = eris.Wrapf(err, "apify: %s", platform)
		zap.L().Warn("apify: scrape failed",
			zap.String("platform", string(platform)),
			zap.String("target", target),
			zap.Error(err),
		)
		return res
	}
	res.Items = items
	zap.L().Info("apify: scrape complete",
		zap.String("platform", string(platform)),
		zap.Int("items", len(items)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

// fillTemplate deep-copies v, replacing the target placeholder in strings.
func fillTemplate(v any, target string) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, targetPlaceholder, target)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fillTemplate(e, target)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fillTemplate(e, target)
		}
		return out
	}
	return v
}
