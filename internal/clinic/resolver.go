package clinic

import "strings"

// ClinicsOfferingService returns, in directory order, every clinic with at
// least one service whose name contains serviceName (case-insensitive).
// An empty result means the service is unavailable.
func (d *Directory) ClinicsOfferingService(serviceName string) []Record {
	if d.Empty() {
		return nil
	}
	var out []Record
	for _, c := range d.clinics {
		if _, ok := c.ServiceMatching(serviceName); ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// ClinicByExactName finds the clinic whose name equals name, ignoring case.
func (d *Directory) ClinicByExactName(name string) (Record, bool) {
	if d.Empty() {
		return Record{}, false
	}
	return findByExactName(d.clinics, name)
}

// ClinicMentionedIn returns the first clinic whose name words appear in text,
// allowing one missing word for multi-word names.
func (d *Directory) ClinicMentionedIn(text string) (Record, bool) {
	if d.Empty() {
		return Record{}, false
	}
	words := wordSet(text)
	for _, c := range d.clinics {
		nameWords := wordSet(c.Name)
		if len(nameWords) == 0 {
			continue
		}
		shared := 0
		for w := range nameWords {
			if _, ok := words[w]; ok {
				shared++
			}
		}
		if shared >= max(1, len(nameWords)-1) {
			return c.Clone(), true
		}
	}
	return Record{}, false
}

// HasExactService reports whether any clinic lists a service named exactly name.
func (d *Directory) HasExactService(name string) bool {
	if d.Empty() {
		return false
	}
	for _, c := range d.clinics {
		if c.HasServiceNamed(name) {
			return true
		}
	}
	return false
}

// findByExactName is shared by the directory lookup and the candidate list
// offered during clinic disambiguation.
func findByExactName(records []Record, name string) (Record, bool) {
	name = strings.TrimSpace(name)
	for _, c := range records {
		if strings.EqualFold(c.Name, name) {
			return c.Clone(), true
		}
	}
	return Record{}, false
}

// FindByExactName picks a record from candidates by case-insensitive name.
func FindByExactName(candidates []Record, name string) (Record, bool) {
	return findByExactName(candidates, name)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
