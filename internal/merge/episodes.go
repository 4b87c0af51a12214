package merge

import (
	"strings"

	"animap/internal/catalog"
)

// episodePriorities lists, per episode field, the metadata catalogs consulted
// in order. The anchor's own value is the floor.
var episodePriorities = struct {
	Title       []catalog.Source
	Description []catalog.Source
	Image       []catalog.Source
	Rating      []catalog.Source
	IsFiller    []catalog.Source
	Season      []catalog.Source
	UpdatedAt   []catalog.Source
}{
	Title:       sources(catalog.MAL, catalog.TVDB, catalog.TMDB, catalog.AniDB),
	Description: sources(catalog.TVDB, catalog.TMDB, catalog.AniDB, catalog.MAL),
	Image:       sources(catalog.TVDB, catalog.TMDB, catalog.MAL, catalog.AniDB),
	Rating:      sources(catalog.TMDB, catalog.MAL),
	IsFiller:    sources(catalog.MAL),
	Season:      sources(catalog.TVDB, catalog.TMDB),
	UpdatedAt:   sources(catalog.TVDB),
}

// metadataSources are the catalogs indexed for enrichment.
var metadataSources = sources(catalog.MAL, catalog.TVDB, catalog.TMDB, catalog.AniDB)

type episodeIndex map[catalog.Source]map[int]*catalog.Episode

func indexEpisodes(lists catalog.EpisodeLists) episodeIndex {
	idx := make(episodeIndex, len(metadataSources))
	for _, src := range metadataSources {
		list := lists[src]
		if len(list) == 0 {
			continue
		}
		byNumber := make(map[int]*catalog.Episode, len(list))
		for i := range list {
			if _, ok := byNumber[list[i].Number]; !ok {
				byNumber[list[i].Number] = &list[i]
			}
		}
		idx[src] = byNumber
	}
	return idx
}

func (idx episodeIndex) lookup(src catalog.Source, number int) *catalog.Episode {
	if byNumber, ok := idx[src]; ok {
		return byNumber[number]
	}
	return nil
}

// MergeEpisodes aligns the anchor catalogs' episode lists with the metadata
// catalogs by episode number. Missing anchors yield empty tracks.
func MergeEpisodes(lists catalog.EpisodeLists) StreamEpisodes {
	idx := indexEpisodes(lists)
	return StreamEpisodes{
		HiAnime: Tracks{
			Sub: mergeTrack(anchorList(lists, catalog.HiAnime, catalog.TrackSub), idx),
			Dub: mergeTrack(anchorList(lists, catalog.HiAnime, catalog.TrackDub), idx),
		},
		GogoAnime: Tracks{
			Sub: mergeTrack(anchorList(lists, catalog.GogoAnime, catalog.TrackSub), idx),
			Dub: mergeTrack(anchorList(lists, catalog.GogoAnime, catalog.TrackDub), idx),
		},
	}
}

// anchorList returns an anchor's list for track. An anchor bound without the
// sub/dub split fills the sub track from its untracked list.
func anchorList(lists catalog.EpisodeLists, name catalog.Name, track catalog.Track) []catalog.Episode {
	if list, ok := lists[catalog.Source{Catalog: name, Track: track}]; ok || track != catalog.TrackSub {
		return list
	}
	return lists[catalog.Of(name)]
}

func emptyStreams() StreamEpisodes {
	return MergeEpisodes(nil)
}

func mergeTrack(anchor []catalog.Episode, idx episodeIndex) []Episode {
	out := make([]Episode, 0, len(anchor))
	for i := range anchor {
		out = append(out, mergeEpisode(&anchor[i], idx))
	}
	return out
}

func mergeEpisode(a *catalog.Episode, idx episodeIndex) Episode {
	p := episodePriorities
	ep := Episode{ID: a.ID, Number: a.Number}

	ep.Title = strings.TrimSpace(a.Title)
	if v := firstString(idx, p.Title, a.Number, func(e *catalog.Episode) string { return e.Title }); v != nil {
		ep.Title = *v
	}
	ep.Description = orString(firstString(idx, p.Description, a.Number, func(e *catalog.Episode) string { return e.Description }), a.Description)
	ep.Image = orString(firstString(idx, p.Image, a.Number, func(e *catalog.Episode) string { return e.Image }), a.Image)
	ep.UpdatedAt = orString(firstString(idx, p.UpdatedAt, a.Number, func(e *catalog.Episode) string { return e.UpdatedAt }), a.UpdatedAt)

	ep.Rating = a.Rating
	for _, src := range p.Rating {
		if e := idx.lookup(src, a.Number); e != nil && e.Rating != nil {
			v := *e.Rating
			ep.Rating = &v
			break
		}
	}
	ep.IsFiller = a.IsFiller
	for _, src := range p.IsFiller {
		if e := idx.lookup(src, a.Number); e != nil && e.IsFiller != nil {
			v := *e.IsFiller
			ep.IsFiller = &v
			break
		}
	}
	if a.Season > 0 {
		v := a.Season
		ep.SeasonNumber = &v
	}
	for _, src := range p.Season {
		if e := idx.lookup(src, a.Number); e != nil && e.Season > 0 {
			v := e.Season
			ep.SeasonNumber = &v
			break
		}
	}
	return ep
}

func firstString(idx episodeIndex, order []catalog.Source, number int, get func(*catalog.Episode) string) *string {
	for _, src := range order {
		if e := idx.lookup(src, number); e != nil {
			if v := strings.TrimSpace(get(e)); v != "" {
				return &v
			}
		}
	}
	return nil
}

func orString(v *string, floor string) *string {
	if v != nil {
		return v
	}
	if floor = strings.TrimSpace(floor); floor != "" {
		return &floor
	}
	return nil
}
