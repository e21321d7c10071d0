package schema

const minPasswordLen = 8

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// UpdateMeInput holds only the fields the caller sent.
type UpdateMeInput struct {
	Name            *string
	Email           *string
	NewPassword     *string
	CurrentPassword *string
}

// ChangesCredentials reports whether the update needs the current password.
func (in UpdateMeInput) ChangesCredentials() bool {
	return in.Email != nil || in.NewPassword != nil
}

type DeleteMeInput struct {
	Password string
}

func ParseRegister(raw map[string]any) (RegisterInput, error) {
	c := newCollector(raw)
	var in RegisterInput

	if s, ok := c.requiredString("name"); ok {
		in.Name, _ = c.nonBlank("name", s)
	}

	if s, ok := c.requiredString("email"); ok {
		in.Email, _ = c.email("email", s)
	}

	if s, ok := c.requiredString("password"); ok {
		if c.minLen("password", s, minPasswordLen) {
			in.Password = s
		}
	}

	if err := c.err(); err != nil {
		return RegisterInput{}, err
	}
	return in, nil
}

func ParseLogin(raw map[string]any) (LoginInput, error) {
	c := newCollector(raw)
	var in LoginInput

	if s, ok := c.requiredString("email"); ok {
		in.Email, _ = c.email("email", s)
	}

	if s, ok := c.requiredString("password"); ok {
		in.Password = s
	}

	if err := c.err(); err != nil {
		return LoginInput{}, err
	}
	return in, nil
}

func ParseUpdateMe(raw map[string]any) (UpdateMeInput, error) {
	c := newCollector(raw)
	var in UpdateMeInput

	if s, present, ok := c.str("name"); present && ok {
		if name, ok := c.nonBlank("name", s); ok {
			in.Name = &name
		}
	}

	email, sentEmail, ok := c.str("email")
	if sentEmail && ok {
		if v, ok := c.email("email", email); ok {
			in.Email = &v
		}
	}

	newPassword, sentPassword, ok := c.str("newPassword")
	if sentPassword && ok {
		if c.minLen("newPassword", newPassword, minPasswordLen) {
			in.NewPassword = &newPassword
		}
	}

	if s, present, ok := c.str("currentPassword"); present && ok {
		in.CurrentPassword = &s
	}

	// Object-level rule: runs after field checks unless a field had the wrong type.
	changesCredentials := sentEmail || sentPassword
	if !c.aborted && changesCredentials && (in.CurrentPassword == nil || *in.CurrentPassword == "") {
		c.fail("currentPassword", `"currentPassword" is required when changing email or password`)
	}

	if err := c.err(); err != nil {
		return UpdateMeInput{}, err
	}
	return in, nil
}

func ParseDeleteMe(raw map[string]any) (DeleteMeInput, error) {
	c := newCollector(raw)
	var in DeleteMeInput

	if s, ok := c.requiredString("password"); ok {
		in.Password = s
	}

	if err := c.err(); err != nil {
		return DeleteMeInput{}, err
	}
	return in, nil
}
