package gitlog

import "strings"

// EmailToDomain derives a trimmed origin domain from an author email.
// The local part is stripped, and the domain is shortened to its last
// two labels, or three when the address ends in a short country code
// preceded by a short second-level label ('example.ac.uk',
// 'example.com.au'). Malformed input is returned lowercased as-is.
func EmailToDomain(email string) string {
	domain := strings.ToLower(email)

	if p := strings.LastIndex(domain, "@"); p >= 0 {
		domain = domain[p+1:]
	}

	labels := strings.Split(domain, ".")
	n := len(labels)
	if n <= 2 {
		return domain
	}

	if len(labels[n-1]) < 3 && len(labels[n-2]) < 4 {
		// example.com.au
		return strings.Join(labels[n-3:], ".")
	}
	// example.org
	return strings.Join(labels[n-2:], ".")
}
