package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type dailyStyles struct {
	title      int
	date       int
	subtitle   int
	header     int
	center     int
	subtotal   int
	grandTotal int
}

func borders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

func fill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
}

var centered = &excelize.Alignment{Horizontal: "center", Vertical: "center"}

func newDailyStyles(f *excelize.File) (dailyStyles, error) {
	var st dailyStyles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: centered,
		}},
		{&st.date, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Italic: true},
			Alignment: centered,
			Border:    borders(),
		}},
		{&st.subtitle, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 12},
			Fill:      fill("#FFE699"),
			Alignment: centered,
			Border:    borders(),
		}},
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      fill("#FFD966"),
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    borders(),
		}},
		{&st.center, &excelize.Style{
			Alignment: centered,
			Border:    borders(),
		}},
		{&st.subtotal, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      fill("#BDD7EE"),
			Alignment: centered,
			Border:    borders(),
		}},
		{&st.grandTotal, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      fill("#F4B084"),
			Alignment: centered,
			Border:    borders(),
		}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return dailyStyles{}, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}
