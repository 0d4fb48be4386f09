package application

var (
	yesNoValues     = map[string]bool{"yes": true, "no": true}
	frequencyValues = map[string]bool{"daily": true, "2-3days": true, "all-at-once": true}
)

func validateEnum(vErr *ValidationError, field string, value *string, allowed map[string]bool) {
	if value == nil || *value == "" {
		return
	}
	if !allowed[*value] {
		vErr.add(field, "unsupported value "+*value)
	}
}

// normalize sanitizes free text and validates enumerated fields.
func (in *CardHeaderInput) normalize() *ValidationError {
	vErr := &ValidationError{}
	if in == nil {
		return vErr
	}
	in.Name = sanitizeOptional(in.Name)
	in.WrittenDuringCounseling = sanitizeOptional(in.WrittenDuringCounseling)
	in.Frequency = sanitizeOptional(in.Frequency)
	validateEnum(vErr, "header.written_during_counseling", in.WrittenDuringCounseling, yesNoValues)
	validateEnum(vErr, "header.frequency", in.Frequency, frequencyValues)
	return vErr
}

// apply overwrites every field of h that in provides.
func (in *CardHeaderInput) apply(h CardHeader) CardHeader {
	if in == nil {
		return h
	}
	assign(&h.Name, in.Name)
	assign(&h.WrittenDuringCounseling, in.WrittenDuringCounseling)
	assign(&h.Frequency, in.Frequency)
	return h
}

func (in *DayDataInput) fields() []**string {
	return []**string{
		&in.Impulse1Text, &in.Impulse1Intensity,
		&in.Action1Text, &in.Action1Intensity,
		&in.ThoughtText, &in.ThoughtIntensity,
		&in.Action2Text, &in.Action2Intensity,
		&in.Impulse2Text, &in.Impulse2Intensity,
		&in.Action3Text, &in.Action3Intensity,
		&in.Medication,
		&in.TargetBehavior1, &in.TargetBehavior2,
		&in.SkillUse,
		&in.SleepTime, &in.WakeTime,
		&in.Anger, &in.AngerKeyword,
		&in.Fear, &in.FearKeyword,
		&in.Joy, &in.JoyKeyword,
		&in.Anxiety, &in.AnxietyKeyword,
		&in.Sadness, &in.SadnessKeyword,
	}
}

// fields lists d's fields in the same order as DayDataInput.fields.
func (d *DayData) fields() []*string {
	return []*string{
		&d.Impulse1Text, &d.Impulse1Intensity,
		&d.Action1Text, &d.Action1Intensity,
		&d.ThoughtText, &d.ThoughtIntensity,
		&d.Action2Text, &d.Action2Intensity,
		&d.Impulse2Text, &d.Impulse2Intensity,
		&d.Action3Text, &d.Action3Intensity,
		&d.Medication,
		&d.TargetBehavior1, &d.TargetBehavior2,
		&d.SkillUse,
		&d.SleepTime, &d.WakeTime,
		&d.Anger, &d.AngerKeyword,
		&d.Fear, &d.FearKeyword,
		&d.Joy, &d.JoyKeyword,
		&d.Anxiety, &d.AnxietyKeyword,
		&d.Sadness, &d.SadnessKeyword,
	}
}

func (in *DayDataInput) normalize() *ValidationError {
	vErr := &ValidationError{}
	if in == nil {
		return vErr
	}
	for _, field := range in.fields() {
		*field = sanitizeOptional(*field)
	}
	validateEnum(vErr, "day_data.medication", in.Medication, yesNoValues)
	return vErr
}

func (in *DayDataInput) apply(d DayData) DayData {
	if in == nil {
		return d
	}
	dst := d.fields()
	for i, src := range in.fields() {
		assign(dst[i], *src)
	}
	return d
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
