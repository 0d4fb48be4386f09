package application

import "time"

// Card is a DBT diary card. ClientName and ClientEmail are only filled for
// counselor listings.
type Card struct {
	ID          string
	RoomID      string
	ClientID    string
	Date        time.Time
	Header      CardHeader
	DayData     DayData
	SubmittedAt time.Time
	UpdatedAt   time.Time
	ClientName  string
	ClientEmail string
}

// Key returns the card's logical identity.
func (c Card) Key() CardKey {
	return CardKey{RoomID: c.RoomID, ClientID: c.ClientID, Date: c.Date}
}

// CardKey identifies the single card a client may keep per room and day.
type CardKey struct {
	RoomID   string
	ClientID string
	Date     time.Time
}

// CardQuery narrows card listings. Zero fields do not filter.
type CardQuery struct {
	RoomID   string
	ClientID string
	Date     *time.Time
}

// CardHeader is the header section of a card.
type CardHeader struct {
	Name                    string `json:"name"`
	WrittenDuringCounseling string `json:"written_during_counseling"`
	Frequency               string `json:"frequency"`
}

// DayData is the day section of a card. The JSON form is also the stored form.
type DayData struct {
	Impulse1Text      string `json:"impulse1_text"`
	Impulse1Intensity string `json:"impulse1_intensity"`
	Action1Text       string `json:"action1_text"`
	Action1Intensity  string `json:"action1_intensity"`
	ThoughtText       string `json:"thought_text"`
	ThoughtIntensity  string `json:"thought_intensity"`
	Action2Text       string `json:"action2_text"`
	Action2Intensity  string `json:"action2_intensity"`
	Impulse2Text      string `json:"impulse2_text"`
	Impulse2Intensity string `json:"impulse2_intensity"`
	Action3Text       string `json:"action3_text"`
	Action3Intensity  string `json:"action3_intensity"`
	Medication        string `json:"medication"`
	TargetBehavior1   string `json:"target_behavior1"`
	TargetBehavior2   string `json:"target_behavior2"`
	SkillUse          string `json:"skill_use"`
	SleepTime         string `json:"sleep_time"`
	WakeTime          string `json:"wake_time"`
	Anger             string `json:"anger"`
	AngerKeyword      string `json:"anger_keyword"`
	Fear              string `json:"fear"`
	FearKeyword       string `json:"fear_keyword"`
	Joy               string `json:"joy"`
	JoyKeyword        string `json:"joy_keyword"`
	Anxiety           string `json:"anxiety"`
	AnxietyKeyword    string `json:"anxiety_keyword"`
	Sadness           string `json:"sadness"`
	SadnessKeyword    string `json:"sadness_keyword"`
}

// CardHeaderInput is a partial header; nil fields keep the stored value.
type CardHeaderInput struct {
	Name                    *string `json:"name"`
	WrittenDuringCounseling *string `json:"written_during_counseling"`
	Frequency               *string `json:"frequency"`
}

// DayDataInput is a partial day section; nil fields keep the stored value.
type DayDataInput struct {
	Impulse1Text      *string `json:"impulse1_text"`
	Impulse1Intensity *string `json:"impulse1_intensity"`
	Action1Text       *string `json:"action1_text"`
	Action1Intensity  *string `json:"action1_intensity"`
	ThoughtText       *string `json:"thought_text"`
	ThoughtIntensity  *string `json:"thought_intensity"`
	Action2Text       *string `json:"action2_text"`
	Action2Intensity  *string `json:"action2_intensity"`
	Impulse2Text      *string `json:"impulse2_text"`
	Impulse2Intensity *string `json:"impulse2_intensity"`
	Action3Text       *string `json:"action3_text"`
	Action3Intensity  *string `json:"action3_intensity"`
	Medication        *string `json:"medication"`
	TargetBehavior1   *string `json:"target_behavior1"`
	TargetBehavior2   *string `json:"target_behavior2"`
	SkillUse          *string `json:"skill_use"`
	SleepTime         *string `json:"sleep_time"`
	WakeTime          *string `json:"wake_time"`
	Anger             *string `json:"anger"`
	AngerKeyword      *string `json:"anger_keyword"`
	Fear              *string `json:"fear"`
	FearKeyword       *string `json:"fear_keyword"`
	Joy               *string `json:"joy"`
	JoyKeyword        *string `json:"joy_keyword"`
	Anxiety           *string `json:"anxiety"`
	AnxietyKeyword    *string `json:"anxiety_keyword"`
	Sadness           *string `json:"sadness"`
	SadnessKeyword    *string `json:"sadness_keyword"`
}

// UpsertCardParams carries a card submission. Date uses YYYY-MM-DD.
type UpsertCardParams struct {
	Principal Principal
	RoomID    string
	Date      string
	Header    *CardHeaderInput
	DayData   *DayDataInput
}

// GetMyCardsParams selects the caller's own cards; Date is optional.
type GetMyCardsParams struct {
	Principal Principal
	RoomID    string
	Date      string
}

// GetCardsParams selects cards for a room's counselor. Date and ClientID are optional.
type GetCardsParams struct {
	Principal Principal
	RoomID    string
	Date      string
	ClientID  string
}
