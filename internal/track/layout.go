package track

// GPLayout returns the default grand-prix circuit: a Silverstone-like
// closed layout with a hairpin, a long bottom straight, a central
// complex and a fast right-side section. The final waypoint closes
// the loop back onto the first.
func GPLayout() []Point {
	return []Point{
		{X: 700, Y: 120}, // start/finish, top middle-right
		{X: 550, Y: 110}, // slight kink left
		{X: 500, Y: 150},
		{X: 400, Y: 200},
		{X: 350, Y: 300},
		{X: 320, Y: 380},
		{X: 280, Y: 520}, // bottom-left hairpin
		{X: 500, Y: 560}, // long bottom straight

		// central complex
		{X: 650, Y: 540},
		{X: 640, Y: 460},
		{X: 610, Y: 360},
		{X: 580, Y: 280},
		{X: 650, Y: 300}, // kink back right

		// right-side section
		{X: 760, Y: 320},
		{X: 840, Y: 360},
		{X: 900, Y: 350},
		{X: 1000, Y: 300}, // top-right corner
		{X: 950, Y: 200},
		{X: 850, Y: 150},
		{X: 700, Y: 120}, // close the loop
	}
}
