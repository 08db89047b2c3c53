package grid

import (
	"strings"
	"time"
)

// datePlaceholder marks where the daily date goes in an archive file
// template.
const datePlaceholder = "{date}"

// Archive names the daily files of a gridded forecast archive. The
// template contains one {date} placeholder expanded as YYYYMMDD, e.g.
// "https://thredds.met.no/.../NorKyst-800m_ZDEPTHS_his.an.{date}00.nc".
type Archive struct {
	Template string
}

// Files returns one file reference per day of [start, end], inclusive
// of the day containing end, in chronological order. Whether each file
// actually exists is the extractor's problem: archives have holes.
func (a Archive) Files(start, end time.Time) []string {
	day := time.Date(start.UTC().Year(), start.UTC().Month(), start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.UTC().Year(), end.UTC().Month(), end.UTC().Day(), 0, 0, 0, 0, time.UTC)

	var files []string
	for ; !day.After(last); day = day.AddDate(0, 0, 1) {
		files = append(files, strings.ReplaceAll(a.Template, datePlaceholder, day.Format("20060102")))
	}
	return files
}
