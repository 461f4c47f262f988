package exifmeta

// DateReport lists the date tags found in a file. Empty strings mean the tag
// is absent.
type DateReport struct {
	Path            string
	HasExif         bool
	Original        string
	Digitized       string
	Modified        string
	SubSecOriginal  string
	SubSecDigitized string
}

// Inspect reads the date tags of the JPEG at path without changing it.
func Inspect(path string) (*DateReport, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}

	b := doc.Block()
	return &DateReport{
		Path:            path,
		HasExif:         doc.HasExif(),
		Original:        b.String(SectionCapture, TagDateTimeOriginal),
		Digitized:       b.String(SectionCapture, TagDateTimeDigitized),
		Modified:        b.String(SectionImage, TagDateTime),
		SubSecOriginal:  b.String(SectionCapture, TagSubSecTimeOriginal),
		SubSecDigitized: b.String(SectionCapture, TagSubSecTimeDigitized),
	}, nil
}
