package glyph

// Icon identifies a notification bar icon.
type Icon int

const (
	IconEmail Icon = iota
	IconText
	IconVoicemail
	IconMissedCall

	NumIcons = 4
)

// IconW and IconH are the notification icon cell size.
const (
	IconW = 12
	IconH = 9
)

func (i Icon) String() string {
	switch i {
	case IconEmail:
		return "email"
	case IconText:
		return "text"
	case IconVoicemail:
		return "voicemail"
	case IconMissedCall:
		return "missed_call"
	default:
		return "unknown"
	}
}

var icons = [NumIcons]*Glyph{
	IconEmail: FromRows(
		"############",
		"##........##",
		"#.#......#.#",
		"#..#....#..#",
		"#...#..#...#",
		"#....##....#",
		"#..........#",
		"#..........#",
		"############",
	),
	IconText: FromRows(
		"############",
		"#..........#",
		"#.########.#",
		"#..........#",
		"#.######...#",
		"#..........#",
		"############",
		"..##........",
		".#..........",
	),
	IconVoicemail: FromRows(
		"............",
		".###....###.",
		"#...#..#...#",
		"#...#..#...#",
		"#...#..#...#",
		".##########.",
		"............",
		"............",
		"............",
	),
	IconMissedCall: FromRows(
		"#.....#.....",
		".#...#......",
		"..#.#.......",
		"...#........",
		"............",
		"####....####",
		"#..######..#",
		"##........##",
		"............",
	),
}

// IconGlyph returns the bitmap for an icon.
func IconGlyph(i Icon) *Glyph {
	return icons[i]
}

// Handset is drawn on the incoming call template.
var Handset = FromRows(
	"............",
	"............",
	"............",
	"............",
	"............",
	"####....####",
	"#..######..#",
	"##........##",
	"............",
)

// Colon separates hours and minutes.
var Colon = FromRows(
	"...",
	"...",
	"...",
	"...",
	"...",
	"...",
	"...",
	"###",
	"###",
	"###",
	"...",
	"...",
	"...",
	"...",
	"...",
	"...",
	"...",
	"###",
	"###",
	"###",
	"...",
	"...",
	"...",
	"...",
	"...",
	"...",
	"...",
)

// PM marks afternoon hours in 12-hour mode.
var PM = FromRows(
	"####..#...#.",
	"#...#.##.##.",
	"#...#.#.#.#.",
	"####..#...#.",
	"#.....#...#.",
	"#.....#...#.",
	"#.....#...#.",
)
