package schema

type AddItemInput struct {
	Name string
}

// UpdateItemInput holds only the fields the caller sent.
type UpdateItemInput struct {
	Name      *string
	Completed *bool
}

func ParseAddItem(raw map[string]any) (AddItemInput, error) {
	c := newCollector(raw)
	var in AddItemInput

	if s, ok := c.requiredString("name"); ok {
		in.Name, _ = c.nonBlank("name", s)
	}

	if err := c.err(); err != nil {
		return AddItemInput{}, err
	}
	return in, nil
}

func ParseUpdateItem(raw map[string]any) (UpdateItemInput, error) {
	c := newCollector(raw)
	var in UpdateItemInput

	if s, present, ok := c.str("name"); present && ok {
		if name, ok := c.nonBlank("name", s); ok {
			in.Name = &name
		}
	}

	if b, ok := c.optionalBool("completed"); ok {
		in.Completed = b
	}

	if err := c.err(); err != nil {
		return UpdateItemInput{}, err
	}

	if in.Name == nil && in.Completed == nil {
		c.fail("", `At least one field ("name" or "completed") must be provided`)
		return UpdateItemInput{}, c.err()
	}

	return in, nil
}
