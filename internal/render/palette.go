package render

var (
	defaultPalette = []rune(" .:-=+*#%@")
	blockPalette   = []rune(" ░▒▓█")
	dotPalette     = []rune(" ·•●")
)

// Palette returns the density ramp used to shade chart cells, lightest first.
func Palette(name string) []rune {
	switch name {
	case "blocks":
		return blockPalette
	case "dots":
		return dotPalette
	default:
		return defaultPalette
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"default", "blocks", "dots"}
}
