package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/enfinlibre/formation/internal/ui/theme"
)

const bannerArt = `
 ██████╗ ██████╗  ██████╗ ███╗   ███╗██████╗ ████████╗
 ██╔══██╗██╔══██╗██╔═══██╗████╗ ████║██╔══██╗╚══██╔══╝
 ██████╔╝██████╔╝██║   ██║██╔████╔██║██████╔╝   ██║
 ██╔═══╝ ██╔══██╗██║   ██║██║╚██╔╝██║██╔═══╝    ██║
 ██║     ██║  ██║╚██████╔╝██║ ╚═╝ ██║██║        ██║
 ╚═╝     ╚═╝  ╚═╝ ╚═════╝ ╚═╝     ╚═╝╚═╝        ╚═╝`

const bannerCompact = "P R O M P T"

// bannerWidth is the widest line of bannerArt.
const bannerWidth = 56

// RenderBanner returns the PROMPT banner in the primary color, or a compact
// fallback for narrow terminals.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < bannerWidth {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
