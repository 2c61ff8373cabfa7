// Package reconcile merges remote-derived posts with locally cached
// interaction state. It is the single place where the two data planes meet;
// every feed consumer gets identical merge semantics by going through Merge.
package reconcile

import "citypulse/internal/models"

// Overlay is the locally cached interaction state, keyed by post id. Map
// presence is significant: an id present in Interactions replaces the
// mapper-provided counters wholesale, and an id present in Comments replaces
// the comment sequence, even when the local value is empty.
type Overlay struct {
	Interactions map[string]models.Interaction
	Comments     map[string][]models.Comment
}

// NewOverlay returns an empty overlay with allocated maps.
func NewOverlay() Overlay {
	return Overlay{
		Interactions: make(map[string]models.Interaction),
		Comments:     make(map[string][]models.Comment),
	}
}

// Merge produces the final render-ready collection from a remote-derived
// collection, the local posts collection, and the per-id overlay. It performs
// no writes and does not mutate its inputs.
//
// The merge key is exclusively the post id. Remote posts absent locally pass
// through unchanged; posts present only locally are appended, normalized.
// Where both sides know an id, remote content wins and local interaction
// state (comments, counters) wins.
func Merge(remote []models.Post, local []models.Post, ov Overlay) []models.Post {
	localByID := make(map[string]models.Post, len(local))
	for _, p := range local {
		localByID[p.ID] = p
	}

	out := make([]models.Post, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote))

	for _, p := range remote {
		seen[p.ID] = struct{}{}
		if lp, ok := localByID[p.ID]; ok {
			p.Likes = lp.Likes
			p.Dislikes = lp.Dislikes
			p.Shares = lp.Shares
			p.Comments = lp.Comments
		}
		out = append(out, applyOverlay(p, ov))
	}

	for _, p := range local {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		out = append(out, applyOverlay(models.Normalize(p), ov))
	}

	return out
}

func applyOverlay(p models.Post, ov Overlay) models.Post {
	if in, ok := ov.Interactions[p.ID]; ok {
		in = in.Clamp()
		p.Likes = in.Likes
		p.Dislikes = in.Dislikes
		p.Shares = in.Shares
	}
	if cs, ok := ov.Comments[p.ID]; ok {
		if cs == nil {
			cs = []models.Comment{}
		}
		p.Comments = cs
	}
	return p
}
