package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mandi/internal/listing"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/render"
)

// DealSuffix ends every deal file name written by NewTimestampPath.
const DealSuffix = "-deal.json"

var ErrNoDeal = errors.New("session has no confirmed deal")

// Record is the JSON document written for one confirmed deal.
type Record struct {
	Deal     orchestrator.Deal    `json:"deal"`
	Listing  listing.Listing      `json:"listing"`
	Seller   persona.Persona      `json:"seller"`
	Buyer    persona.Persona      `json:"buyer"`
	Turns    []orchestrator.Turn  `json:"turns"`
	Metrics  orchestrator.Metrics `json:"metrics"`
	Locale   string               `json:"locale"`
	Duration string               `json:"duration,omitempty"`
}

// NewRecord collects the deal of a finalized session with its parties and
// transcript.
func NewRecord(s *orchestrator.Session) (Record, error) {
	if s == nil || s.Deal == nil {
		return Record{}, ErrNoDeal
	}
	seller, _ := persona.ForRole(s.Personas, persona.RoleSeller)
	buyer, _ := persona.ForRole(s.Personas, persona.RoleBuyer)
	rec := Record{
		Deal:    *s.Deal,
		Listing: s.Listing,
		Seller:  seller,
		Buyer:   buyer,
		Turns:   s.Turns,
		Metrics: s.Metrics,
		Locale:  string(s.Locale),
	}
	if !s.StartedAt.IsZero() && !s.Deal.Timestamp.IsZero() {
		rec.Duration = s.Deal.Timestamp.Sub(s.StartedAt).Round(time.Second).String()
	}
	return rec, nil
}

// SaveDeal writes the deal JSON to path and a Markdown invoice next to it.
func SaveDeal(path string, rec Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	jsonData, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal deal: %w", err)
	}
	if err := writeAtomic(path, jsonData, 0o644); err != nil {
		return fmt.Errorf("write json deal file: %w", err)
	}

	mdPath := MarkdownPath(path)
	mdData := []byte(formatInvoiceMarkdown(rec))
	if err := writeAtomic(mdPath, mdData, 0o644); err != nil {
		return fmt.Errorf("write markdown invoice file: %w", err)
	}
	return nil
}

// ReadDeal loads a file written by SaveDeal.
func ReadDeal(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read deal file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse deal file %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

func MarkdownPath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + ".md"
	}
	return strings.TrimSuffix(path, ext) + ".md"
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tempFile, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}

	if err := tempFile.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tempFile.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("move temp file: %w", err)
	}
	return nil
}

func formatInvoiceMarkdown(rec Record) string {
	var b strings.Builder
	d := rec.Deal

	b.WriteString("# Invoice " + safeText(d.ID) + "\n\n")
	b.WriteString("- status: " + safeText(d.Status) + "\n")
	if !d.Timestamp.IsZero() {
		b.WriteString("- date: " + d.Timestamp.UTC().Format(time.RFC3339) + "\n")
	}
	b.WriteString("- listing: " + safeText(d.ListingID) + "\n")
	if rec.Duration != "" {
		b.WriteString("- negotiated_in: " + rec.Duration + "\n")
	}

	b.WriteString("\n## Parties\n\n")
	b.WriteString(partyLine("Seller", d.SellerID, rec.Seller) + "\n")
	b.WriteString(partyLine("Buyer", d.BuyerID, rec.Buyer) + "\n")

	b.WriteString("\n## Items\n\n")
	b.WriteString("| Produce | Quantity | Price per unit | Amount |\n")
	b.WriteString("|---|---|---|---|\n")
	b.WriteString(fmt.Sprintf("| %s | %s %s | ₹%s | ₹%s |\n",
		safeText(d.ProduceName),
		render.FormatNumber(d.FinalQuantity), safeText(d.Unit),
		render.FormatNumber(d.FinalPrice),
		render.FormatNumber(d.TotalAmount),
	))
	b.WriteString("\n**Total: ₹" + render.FormatNumber(d.TotalAmount) + "**\n")
	if rec.Listing.PricePerUnit > 0 && rec.Listing.PricePerUnit != d.FinalPrice {
		b.WriteString(fmt.Sprintf("\nListed at ₹%s per %s.\n",
			render.FormatNumber(rec.Listing.PricePerUnit), safeText(rec.Listing.Unit)))
	}
	if strings.TrimSpace(rec.Listing.Quality) != "" {
		b.WriteString("\n- quality: " + safeText(rec.Listing.Quality) + "\n")
	}

	b.WriteString("\n## Conversation\n\n")
	b.WriteString(formatTranscript(rec.Turns))

	b.WriteString("\n## Metrics\n\n")
	b.WriteString(fmt.Sprintf("- ai_turns: %d\n", rec.Metrics.AITurns))
	b.WriteString(fmt.Sprintf("- fallback_turns: %d\n", rec.Metrics.FallbackTurns))
	b.WriteString(fmt.Sprintf("- total_tokens: %d\n", rec.Metrics.TotalTokens))
	return b.String()
}

func partyLine(label, id string, p persona.Persona) string {
	line := fmt.Sprintf("- %s: **%s** (`%s`)", label, safeText(persona.DisplayName(p)), safeText(id))
	if strings.TrimSpace(p.Location) != "" {
		line += ", " + safeText(p.Location)
	}
	return line
}

func safeText(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return strings.ReplaceAll(v, "\n", " ")
}

func markdownBulletedText(v string, indent string) string {
	v = strings.ReplaceAll(v, "\r\n", "\n")
	v = strings.TrimSpace(v)
	if v == "" {
		return indent + "- (empty)"
	}
	lines := strings.Split(v, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if hasListPrefix(trimmed) || strings.HasPrefix(trimmed, "> ") {
			out = append(out, indent+trimmed)
			continue
		}
		out = append(out, indent+"- "+trimmed)
	}
	if len(out) == 0 {
		return indent + "- (empty)"
	}
	return strings.Join(out, "\n")
}

func hasListPrefix(line string) bool {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "+ ") {
		return true
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(line) {
		return false
	}
	return line[i] == '.' && line[i+1] == ' '
}

func formatTranscript(turns []orchestrator.Turn) string {
	if len(turns) == 0 {
		return "- no turns\n"
	}

	var b strings.Builder
	b.WriteString("<details>\n")
	b.WriteString(fmt.Sprintf("<summary>%d %s</summary>\n\n", len(turns), turnWord(len(turns))))
	for _, t := range turns {
		header := fmt.Sprintf("#### Turn %d · %s (%s)", t.Index, safeText(displaySpeaker(t)), safeText(t.Type))
		if t.Source != "" && t.Source != t.Type {
			header += " [" + t.Source + "]"
		}
		b.WriteString(header + "\n\n")
		b.WriteString(markdownBulletedText(t.Content, "") + "\n\n")
	}
	b.WriteString("</details>\n")
	return b.String()
}

func displaySpeaker(turn orchestrator.Turn) string {
	speaker := strings.TrimSpace(turn.SpeakerName)
	if speaker == "" {
		speaker = strings.TrimSpace(turn.SpeakerID)
	}
	if speaker == "" {
		return "Unknown Speaker"
	}
	return speaker
}

func turnWord(n int) string {
	if n == 1 {
		return "turn"
	}
	return "turns"
}

func NewTimestampPath(dir string, now time.Time) string {
	name := now.UTC().Format("20060102-150405.000000000") + DealSuffix
	return filepath.Join(dir, name)
}
