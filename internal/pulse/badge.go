package pulse

import (
	"fmt"
	"html"
	"math"
	"strings"
)

const (
	badgeColorUp      = "#4c1"
	badgeColorDown    = "#e05d44"
	badgeColorUnknown = "#9f9f9f"

	badgeCharWidth = 7
	badgePadding   = 10
	badgeHeight    = 20
	badgeInfoExtra = 15
)

// Badge is a shields-style status badge.
type Badge struct {
	Label   string
	Message string
	Color   string
	// Info is an optional second line under the badge.
	Info string
}

// StatusBadge builds the badge for ts. With detailed set the badge carries
// the last response time, when there is one, and the uptime percentage.
func StatusBadge(ts TargetStatus, detailed bool) Badge {
	b := Badge{Label: ts.Alias, Message: "UP", Color: badgeColorUp}
	if !ts.Healthy {
		b.Message, b.Color = "DOWN", badgeColorDown
	}
	if detailed {
		var parts []string
		if ts.LastResponseTimeMs != nil {
			parts = append(parts, fmt.Sprintf("%dms", int64(math.Round(*ts.LastResponseTimeMs))))
		}
		parts = append(parts, fmt.Sprintf("%.1f%% uptime", ts.UptimePercentage))
		b.Info = strings.Join(parts, " | ")
	}
	return b
}

// UnknownBadge is rendered for an alias that matches no target.
func UnknownBadge(alias string) Badge {
	return Badge{Label: alias, Message: "UNKNOWN", Color: badgeColorUnknown}
}

// SVG renders the badge. All text is escaped.
func (b Badge) SVG() string {
	labelWidth := textWidth(b.Label)
	messageWidth := textWidth(b.Message)
	total := labelWidth + messageWidth
	height := badgeHeight
	if b.Info != "" {
		height += badgeInfoExtra
	}

	label := html.EscapeString(b.Label)
	message := html.EscapeString(b.Message)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, total, height)
	sb.WriteString(`<linearGradient id="b" x2="0" y2="100%"><stop offset="0" stop-color="#bbb" stop-opacity=".1"/><stop offset="1" stop-opacity=".1"/></linearGradient>`)
	fmt.Fprintf(&sb, `<clipPath id="a"><rect width="%d" height="%d" rx="3" fill="#fff"/></clipPath>`, total, badgeHeight)
	sb.WriteString(`<g clip-path="url(#a)">`)
	fmt.Fprintf(&sb, `<path fill="#555" d="M0 0h%dv%dH0z"/>`, labelWidth, badgeHeight)
	fmt.Fprintf(&sb, `<path fill="%s" d="M%d 0h%dv%dH%dz"/>`, b.Color, labelWidth, messageWidth, badgeHeight, labelWidth)
	fmt.Fprintf(&sb, `<path fill="url(#b)" d="M0 0h%dv%dH0z"/>`, total, badgeHeight)
	sb.WriteString(`</g>`)
	sb.WriteString(`<g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="11">`)
	fmt.Fprintf(&sb, `<text x="%d" y="15" fill="#010101" fill-opacity=".3">%s</text>`, labelWidth/2, label)
	fmt.Fprintf(&sb, `<text x="%d" y="14">%s</text>`, labelWidth/2, label)
	fmt.Fprintf(&sb, `<text x="%d" y="15" fill="#010101" fill-opacity=".3">%s</text>`, labelWidth+messageWidth/2, message)
	fmt.Fprintf(&sb, `<text x="%d" y="14">%s</text>`, labelWidth+messageWidth/2, message)
	sb.WriteString(`</g>`)
	if b.Info != "" {
		fmt.Fprintf(&sb, `<text x="%d" y="30" fill="#333" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="9">%s</text>`,
			total/2, html.EscapeString(b.Info))
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

func textWidth(s string) int {
	return len([]rune(s))*badgeCharWidth + badgePadding
}
