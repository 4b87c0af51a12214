package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"animap/internal/catalog"
	"animap/internal/merge"
	"animap/internal/store"
)

var linkHeaders = []string{"Catalog", "Track", "ID", "Match", "Similarity", "Title"}

var linkAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}

func printEntity(out io.Writer, entity *merge.Entity) {
	fmt.Fprintf(out, "ID:       %d\n", entity.ID)
	fmt.Fprintf(out, "Title:    %s\n", entityTitle(entity.Title))
	fmt.Fprintf(out, "Status:   %s (%s)\n", entity.Status, orDash(entity.SourceStatus))
	fmt.Fprintf(out, "Format:   %s\n", orDash(entity.Format))
	fmt.Fprintf(out, "Episodes: %d listed, %d total\n", entity.Episodes.Count(), entity.TotalEpisodes)
	if len(entity.Genres) > 0 {
		fmt.Fprintf(out, "Genres:   %s\n", strings.Join(entity.Genres, ", "))
	}
	fmt.Fprintf(out, "Resolved: %s\n\n", formatTime(entity.ResolvedAt))
	fmt.Fprintln(out, renderTable(linkHeaders, mappingRows(entity.Mappings), linkAligns))
}

// mappingRows lists every catalog in name order; unmatched catalogs get a
// placeholder row so absence is visible.
func mappingRows(mappings catalog.Mappings) [][]string {
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, string(name))
	}
	sort.Strings(names)

	var rows [][]string
	for _, name := range names {
		links := catalog.IDs(mappings.Get(catalog.Name(name)))
		if len(links) == 0 {
			rows = append(rows, []string{name, "-", "-", "absent", "-", "-"})
			continue
		}
		for _, link := range links {
			link.Catalog = catalog.Name(name)
			rows = append(rows, linkRow(link))
		}
	}
	return rows
}

func linkRows(links []catalog.Link) [][]string {
	rows := make([][]string, 0, len(links))
	for _, link := range links {
		rows = append(rows, linkRow(link))
	}
	return rows
}

func linkRow(link catalog.Link) []string {
	track := string(link.Track)
	if track == "" {
		track = "-"
	}
	if link.Result == nil {
		return []string{string(link.Catalog), track, "-", "absent", "-", "-"}
	}
	return []string{
		string(link.Catalog),
		track,
		link.Result.BestMatch.ID,
		string(link.Result.MatchType),
		strconv.FormatFloat(link.Result.Similarity, 'f', 2, 64),
		link.Result.BestMatch.Title,
	}
}

func summaryRows(summaries []store.Summary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Title,
			orDash(s.SourceStatus),
			yesNo(s.Active),
			strconv.Itoa(s.Links),
			formatTime(s.ResolvedAt),
		})
	}
	return rows
}

func entityTitle(t catalog.TitleSet) string {
	for _, v := range []string{t.UserPreferred, t.English, t.Romaji, t.Native} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "-"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
