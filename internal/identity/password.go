package identity

import (
	"regexp"
	"strings"
	"unicode"
)

const minPasswordLength = 8

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// maxSimilarity is the similarity ratio at which a password counts as too
// close to a user attribute.
const maxSimilarity = 0.7

var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(`
		123456 123456789 12345678 password qwerty 12345 1234567890 1234567 111111 123123
		abc123 password1 1234 iloveyou 000000 qwerty123 1q2w3e4r dragon sunshine princess
		letmein 654321 monkey 27653 1qaz2wsx 123321 qwertyuiop superman asdfghjkl football
		baseball welcome shadow master michael jennifer 666666 trustno1 starwars passw0rd
		charlie donald freedom whatever qazwsx ninja mustang access batman zaq12wsx
		hello123 loveme hottie flower password123 admin admin123 login solo lovely
		7777777 888888 121212 987654321 555555 computer internet secret summer
		abcdef abcd1234 aaaaaa changeme default guest music musiclover playlist
	`) {
		commonPasswords[p] = struct{}{}
	}
}

var attributeSplit = regexp.MustCompile(`\W+`)

// ValidatePassword applies the length, numeric, common-password and
// similarity rules. Every failing rule is reported under the field name.
func ValidatePassword(field, password, username, email string) error {
	var problems []string

	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "this password is too short. It must contain at least 8 characters.")
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, "this password is too long. It must contain at most 72 bytes.")
	}
	if isNumeric(password) {
		problems = append(problems, "this password is entirely numeric.")
	}
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		problems = append(problems, "this password is too common.")
	}
	if attr := similarAttribute(password, username, email); attr != "" {
		problems = append(problems, "the password is too similar to the "+attr+".")
	}

	if len(problems) == 0 {
		return nil
	}
	return ErrWeakPassword.WithField(field, strings.Join(problems, " "))
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarAttribute(password, username, email string) string {
	pw := strings.ToLower(password)
	local, _, _ := strings.Cut(email, "@")
	for _, attr := range []struct{ name, value string }{
		{"username", username},
		{"email address", email},
		{"email address", local},
	} {
		v := strings.ToLower(attr.value)
		if v == "" {
			continue
		}
		candidates := append([]string{v}, attributeSplit.Split(v, -1)...)
		for _, c := range candidates {
			if len(c) < 3 {
				continue
			}
			if similarity(pw, c) >= maxSimilarity {
				return attr.name
			}
		}
	}
	return ""
}

// similarity is 2*LCS/(len(a)+len(b)) over runes, where LCS is the longest
// common subsequence.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return 2 * float64(prev[len(rb)]) / float64(len(ra)+len(rb))
}
