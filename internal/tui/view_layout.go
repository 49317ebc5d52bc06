package tui

import "strings"

const (
	compactMinWidth  = 76
	compactMinHeight = 18

	dealPanelMinWidth = 32
	dealPanelMaxWidth = 48
	logPanelMinWidth  = 36
)

// deskLayout is the geometry of one frame: the deal panel on the left, the
// negotiation log on the right. Compact frames show the log only.
type deskLayout struct {
	compact bool
	content int
	deal    int
	log     int
	panelH  int
}

func layoutFor(width, height int) deskLayout {
	if width < compactMinWidth || height < compactMinHeight {
		return deskLayout{compact: true, content: maxInt(20, width-4), log: maxInt(20, width-4), panelH: maxInt(5, height-8)}
	}
	content := maxInt(54, width-2)
	deal := minInt(dealPanelMaxWidth, maxInt(dealPanelMinWidth, content/3))
	return deskLayout{
		content: content,
		deal:    deal,
		log:     maxInt(logPanelMinWidth, content-deal-1),
		panelH:  maxInt(10, height-14),
	}
}

// logViewportSize is the inner size of the log panel: the panel border and
// its title and meta lines are not scrollable.
func (l deskLayout) logViewportSize() (int, int) {
	if l.compact {
		return l.log, l.panelH
	}
	return maxInt(22, l.log-2), maxInt(5, l.panelH-4)
}

// dealBodySize is what the deal panel has left after its border and title.
func (l deskLayout) dealBodySize() (int, int) {
	return maxInt(20, l.deal-4), maxInt(4, l.panelH-3)
}

func (m *model) resizeLayout() {
	m.input.Width = maxInt(22, m.width-12)
	m.logViewport.Width, m.logViewport.Height = layoutFor(m.width, m.height).logViewportSize()
	m.refreshLogViewport()
}

func (m *model) refreshLogViewport() {
	m.wrappedWidth = m.logViewport.Width
	m.wrappedLogs = wrapLogLines(m.logs, m.logViewport.Width)
	m.logViewport.SetContent(strings.Join(m.wrappedLogs, "\n"))
	if m.autoFollow {
		m.logViewport.GotoBottom()
	}
}
