package classify

import "strings"

// BuildDestPath derives the destination path for a classified photo inside
// the organized archive: discipline / portico-or-highway segment / date.
// Empty fields are simply omitted; a record with no usable fields lands in
// the NAO_CLASSIFICADAS bucket.
func BuildDestPath(r Result) string {
	var segments []string

	if r.Discipline != "" {
		segments = append(segments, r.Discipline)
	}

	switch {
	case r.Portico != "":
		segments = append(segments, r.Portico)
	case r.Highway != "":
		loc := r.Highway
		if r.KMStart != "" {
			loc += "_KM_" + strings.ReplaceAll(r.KMStart, "+", "_")
			if r.KMEnd != "" && r.KMEnd != r.KMStart {
				loc += "-" + strings.ReplaceAll(r.KMEnd, "+", "_")
			}
		}
		segments = append(segments, loc)
	}

	if r.Date != "" {
		segments = append(segments, strings.ReplaceAll(r.Date, "/", "-"))
	}

	if len(segments) == 0 {
		return "NAO_CLASSIFICADAS"
	}
	return strings.Join(segments, "/")
}
