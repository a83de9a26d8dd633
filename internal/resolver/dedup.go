package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/llm"
	"github.com/sells-group/person-search/internal/model"
)

const dedupDescLimit = 500

const dedupSystem = `You decide which entries in a list of people search results describe the same real person.
Group two entries only when you are certain: name variants of one person ("Elon Musk" and "Elon Reeve Musk") belong together, while the same name with different occupations or places stays apart.
When unsure, keep entries apart. A duplicate shown twice is acceptable; two people merged into one is not.
Reply with JSON only.`

type dedupEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type dedupReply struct {
	// Groups lists ids that denote one person, primary id first.
	Groups [][]string `json:"groups"`
}

// dedup asks the LLM for same-person groups and merges them. Any failure
// leaves cands untouched.
func (r *Resolver) dedup(ctx context.Context, cands []model.Candidate) []model.Candidate {
	if len(cands) < 2 || r.deps.LLM == nil {
		return cands
	}

	entries := make([]dedupEntry, len(cands))
	for i, c := range cands {
		entries[i] = dedupEntry{ID: c.ID, Name: c.Name, Description: truncateDesc(c.Description)}
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return cands
	}

	prompt := fmt.Sprintf(`Candidates:
%s

Return {"groups": [[primaryId, duplicateId, ...], ...]} listing only groups of two or more ids that are certainly the same person. Put the id of the most complete entry first. Return {"groups": []} when nothing should merge.`, payload)

	var reply dedupReply
	err = r.deps.LLM.JSON(ctx, llm.Request{
		Tier:      llm.Fast,
		System:    dedupSystem,
		Prompt:    prompt,
		MaxTokens: 1024,
		Phase:     "dedup_candidates",
	}, &reply)
	if err != nil {
		zap.L().Warn("resolver: dedup failed, keeping all candidates", zap.Error(err))
		return cands
	}

	merged := MergeGroups(cands, reply.Groups)
	if len(merged) != len(cands) {
		zap.L().Info("resolver: merged duplicate candidates",
			zap.Int("before", len(cands)),
			zap.Int("after", len(merged)),
		)
	}
	return merged
}

func truncateDesc(s string) string {
	if utf8.RuneCountInString(s) <= dedupDescLimit {
		return s
	}
	return string([]rune(s)[:dedupDescLimit]) + "..."
}

// MergeGroups collapses each group of ids into one candidate that keeps the
// first id's identity, the longest name, the longest description and the
// first photo found in group order. Unknown ids are ignored, an id joins at
// most one group, and groups left with fewer than two known members are
// no-ops. A merged candidate takes the position of its earliest member.
func MergeGroups(cands []model.Candidate, groups [][]string) []model.Candidate {
	index := make(map[string]int, len(cands))
	for i, c := range cands {
		if _, ok := index[c.ID]; !ok {
			index[c.ID] = i
		}
	}

	owner := make([]int, len(cands))
	for i := range owner {
		owner[i] = -1
	}
	members := make(map[int][]int)
	for _, g := range groups {
		var picked []int
		for _, id := range g {
			i, ok := index[id]
			if !ok || owner[i] != -1 {
				continue
			}
			owner[i] = -2 // claimed while the group is assembled
			picked = append(picked, i)
		}
		if len(picked) < 2 {
			for _, i := range picked {
				owner[i] = -1
			}
			continue
		}
		for _, i := range picked {
			owner[i] = picked[0]
		}
		members[picked[0]] = picked
	}

	out := make([]model.Candidate, 0, len(cands))
	emitted := make(map[int]bool, len(members))
	for i, c := range cands {
		p := owner[i]
		switch {
		case p < 0:
			out = append(out, c)
		case !emitted[p]:
			out = append(out, mergeMembers(cands, members[p]))
			emitted[p] = true
		}
	}
	return out
}

func mergeMembers(cands []model.Candidate, idx []int) model.Candidate {
	merged := cands[idx[0]]
	merged.ImageURL, merged.HasFaceImage = "", false
	for _, i := range idx {
		c := cands[i]
		if utf8.RuneCountInString(c.Name) > utf8.RuneCountInString(merged.Name) {
			merged.Name = c.Name
		}
		if utf8.RuneCountInString(c.Description) > utf8.RuneCountInString(merged.Description) {
			merged.Description = c.Description
		}
		if merged.ImageURL == "" && c.ImageURL != "" {
			merged.ImageURL, merged.HasFaceImage = c.ImageURL, c.HasFaceImage
		}
		if merged.LinkedInURL == "" {
			merged.LinkedInURL = c.LinkedInURL
		}
		if merged.TwitterURL == "" {
			merged.TwitterURL = c.TwitterURL
		}
	}
	return merged
}
