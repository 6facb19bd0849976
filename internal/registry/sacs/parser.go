package sacs

import (
	"html"
	"regexp"
	"strings"

	"regverify/internal/verification/models"
)

// fullNameKey is the basic-table row holding the registered person's name.
const fullNameKey = "NOMBRE Y APELLIDO"

var (
	rowRe    = regexp.MustCompile(`(?si)<tr[^>]*>(.*?)</tr>`)
	cellRe   = regexp.MustCompile(`(?si)<td[^>]*>(.*?)</td>`)
	headerRe = regexp.MustCompile(`(?si)<th[^>]*>(.*?)</th>`)
	boldRe   = regexp.MustCompile(`(?si)<b[^>]*>(.*?)</b>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// cellText strips markup from a table cell and normalizes its whitespace.
func cellText(fragment string) string {
	text := tagRe.ReplaceAllString(fragment, " ")
	text = html.UnescapeString(text)
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ParseBasicInfo reads the personal-data table into key/value pairs. Rows are
// laid out as a <th> label against a bolded <td> value.
func ParseBasicInfo(tableHTML string) map[string]string {
	info := make(map[string]string)
	for _, row := range rowRe.FindAllStringSubmatch(tableHTML, -1) {
		header := headerRe.FindStringSubmatch(row[1])
		value := boldRe.FindStringSubmatch(row[1])
		if header == nil || value == nil {
			continue
		}
		key := strings.TrimSuffix(cellText(header[1]), ":")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		info[key] = cellText(value[1])
	}
	return info
}

// ParseProfessions reads the registered-professions table. Rows shorter than
// the five data columns, and rows with an empty title, are layout noise.
func ParseProfessions(tableHTML string) []models.Profession {
	var professions []models.Profession
	for _, row := range rowRe.FindAllStringSubmatch(tableHTML, -1) {
		cells := cellRe.FindAllStringSubmatch(row[1], -1)
		if len(cells) < 5 {
			continue
		}
		title := cellText(cells[0][1])
		license := cellText(cells[1][1])
		if title == "" || license == "" {
			continue
		}
		professions = append(professions, models.Profession{
			Title:            title,
			LicenseNumber:    license,
			RegistrationDate: cellText(cells[2][1]),
			Volume:           cellText(cells[3][1]),
			Folio:            cellText(cells[4][1]),
			HasPostgraduates: len(cells) > 5 && strings.Contains(strings.ToLower(cells[5][1]), "<button"),
		})
	}
	return professions
}

// ParsePostgraduates reads the expanded postgraduate table.
func ParsePostgraduates(tableHTML string) []models.Postgraduate {
	var postgraduates []models.Postgraduate
	for _, row := range rowRe.FindAllStringSubmatch(tableHTML, -1) {
		cells := cellRe.FindAllStringSubmatch(row[1], -1)
		if len(cells) == 0 {
			continue
		}
		title := cellText(cells[0][1])
		if title == "" {
			continue
		}
		pg := models.Postgraduate{Title: title}
		if len(cells) > 1 {
			pg.RegistrationDate = cellText(cells[1][1])
		}
		if len(cells) > 2 {
			pg.Volume = cellText(cells[2][1])
		}
		if len(cells) > 3 {
			pg.Folio = cellText(cells[3][1])
		}
		postgraduates = append(postgraduates, pg)
	}
	return postgraduates
}
