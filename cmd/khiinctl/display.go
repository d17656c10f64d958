package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pterm/pterm"

	"khiin/internal/bufmgr"
	"khiin/internal/ime"
	"khiin/internal/store"
)

var (
	composingStyle = pterm.NewStyle(pterm.Bold)
	convertedStyle = pterm.NewStyle(pterm.Underscore)
	focusedStyle   = pterm.NewStyle(pterm.BgCyan, pterm.FgBlack)
)

func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " khiin ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error ",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// caretColumn returns the terminal column of a caret counted in
// codepoints of text.
func caretColumn(text string, caret int) int {
	runes := []rune(text)
	if caret > len(runes) {
		caret = len(runes)
	}
	return runewidth.StringWidth(string(runes[:caret]))
}

func printResponse(resp *ime.Response) {
	if resp.Committed {
		pterm.Success.Printf("committed %q\n", resp.CommittedText)
	}

	if len(resp.Preedit.Segments) == 0 {
		pterm.Printf("[%s]\n", resp.EditState)
		return
	}

	var sb strings.Builder
	for _, seg := range resp.Preedit.Segments {
		switch seg.Status {
		case bufmgr.SegmentComposing:
			sb.WriteString(composingStyle.Sprint(seg.Value))
		case bufmgr.SegmentConverted:
			sb.WriteString(convertedStyle.Sprint(seg.Value))
		case bufmgr.SegmentFocused:
			sb.WriteString(focusedStyle.Sprint(seg.Value))
		default:
			sb.WriteString(seg.Value)
		}
	}
	pterm.Printf("%s  [%s]\n", sb.String(), resp.EditState)

	col := caretColumn(resp.Preedit.Text(), resp.Preedit.Caret)
	pterm.Println(strings.Repeat(" ", col) + "^")

	printCandidates(resp.Candidates)
}

func printCandidates(list bufmgr.CandidateList) {
	if len(list.Candidates) == 0 {
		return
	}

	data := pterm.TableData{{"", "#", "Candidate"}}
	for i, c := range list.Candidates {
		mark := ""
		if i == list.Focused {
			mark = ">"
		}
		data = append(data, []string{mark, fmt.Sprintf("%d", c.ID), c.Value})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printEmojis(list bufmgr.CandidateList) {
	data := pterm.TableData{{"Category", "Emoji"}}
	for _, c := range list.Candidates {
		data = append(data, []string{fmt.Sprintf("%d", c.ID), c.Value})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printStats(path string, st *store.Stats) {
	pterm.Info.Printf("Lexicon %s\n", path)
	data := pterm.TableData{
		{"Table", "Rows"},
		{"words", fmt.Sprintf("%d", st.Words)},
		{"conversions", fmt.Sprintf("%d", st.Conversions)},
		{"syllables", fmt.Sprintf("%d", st.Syllables)},
		{"symbols", fmt.Sprintf("%d", st.Symbols)},
		{"emoji", fmt.Sprintf("%d", st.Emoji)},
		{"unigrams", fmt.Sprintf("%d", st.Unigrams)},
		{"bigrams", fmt.Sprintf("%d", st.Bigrams)},
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printMigrations(status *store.MigrationStatus) {
	pterm.Info.Printf("Schema version %d of %d\n", status.CurrentVersion, status.LatestVersion)
	data := pterm.TableData{{"Version", "State", "Description"}}
	for _, m := range status.Applied {
		data = append(data, []string{
			fmt.Sprintf("%d", m.Version),
			"applied " + m.AppliedAt.Format("2006-01-02 15:04"),
			m.Description,
		})
	}
	for _, m := range status.Pending {
		data = append(data, []string{fmt.Sprintf("%d", m.Version), "pending", m.Description})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
