package autologin

type candidate struct {
	form  Form
	extra int // data-entry fields beyond username and password
}

type formRule struct {
	name  string
	apply func([]candidate) []candidate
}

// loginFormRules narrow the candidates in order. Whatever survives is
// tie-broken by document order.
var loginFormRules = []formRule{
	{name: "has-password", apply: hasPassword},
	{name: "fewest-extra-fields", apply: fewestExtraFields},
}

// SelectLoginForm picks the form most likely to be the login form. It
// reports false when no form has a password field.
func SelectLoginForm(forms []Form) (Form, bool) {
	cands := make([]candidate, 0, len(forms))
	for _, f := range forms {
		cands = append(cands, candidate{form: f, extra: extraFieldCount(f)})
	}
	for _, r := range loginFormRules {
		cands = r.apply(cands)
		if len(cands) <= 1 {
			break
		}
	}
	if len(cands) == 0 {
		return Form{}, false
	}
	return cands[0].form, true
}

func hasPassword(cands []candidate) []candidate {
	var out []candidate
	for _, c := range cands {
		if c.form.PasswordIndex() >= 0 {
			out = append(out, c)
		}
	}
	return out
}

func fewestExtraFields(cands []candidate) []candidate {
	if len(cands) == 0 {
		return nil
	}
	low := cands[0].extra
	for _, c := range cands[1:] {
		low = min(low, c.extra)
	}
	var out []candidate
	for _, c := range cands {
		if c.extra == low {
			out = append(out, c)
		}
	}
	return out
}

// extraFieldCount counts visible data-entry fields other than the
// classified username and password. A signup form with a confirmation
// password or profile fields scores higher than a plain login form.
func extraFieldCount(f Form) int {
	cls := ClassifyFields(f)
	n := 0
	for i, fld := range f.Fields {
		if i == cls.PasswordIndex || i == cls.UsernameIndex || !fld.dataEntry() {
			continue
		}
		n++
	}
	return n
}
