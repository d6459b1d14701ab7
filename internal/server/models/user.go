package models

import "time"

// Field names inside a user-data document.
const (
	FieldUID           = "uid"
	FieldEmail         = "email"
	FieldFirstName     = "firstName"
	FieldLastName      = "lastName"
	FieldPhoneNumber   = "phoneNumber"
	FieldBirthday      = "birthday"
	FieldSchoolName    = "schoolName"
	FieldUserType      = "userType"
	FieldDeliveryToken = "fcmToken"
)

// UserAccount is the profile document stored per identity key in the
// user-data collection. DeliveryToken is empty until the app registers one.
type UserAccount struct {
	UID           string
	Email         string
	FirstName     string
	LastName      string
	PhoneNumber   string
	Birthday      *time.Time
	SchoolName    string
	UserType      string
	DeliveryToken string
}

// Fields renders the account as document fields, omitting the optional
// attributes the sign-up form left blank. This mirrors the shape the
// original clients wrote, so documents stay readable by old app builds.
func (u *UserAccount) Fields() map[string]any {
	fields := map[string]any{
		FieldUID:         u.UID,
		FieldEmail:       u.Email,
		FieldFirstName:   u.FirstName,
		FieldLastName:    u.LastName,
		FieldPhoneNumber: u.PhoneNumber,
	}
	if u.Birthday != nil {
		fields[FieldBirthday] = u.Birthday.UTC().Format(time.RFC3339)
	}
	if u.SchoolName != "" {
		fields[FieldSchoolName] = u.SchoolName
	}
	if u.UserType != "" {
		fields[FieldUserType] = u.UserType
	}
	if u.DeliveryToken != "" {
		fields[FieldDeliveryToken] = u.DeliveryToken
	}
	return fields
}

// AccountFromFields reconstructs a UserAccount from document fields.
// Missing or mistyped optional fields are ignored rather than rejected:
// documents written by old app builds may lack them.
func AccountFromFields(fields map[string]any) *UserAccount {
	u := &UserAccount{
		UID:           stringField(fields, FieldUID),
		Email:         stringField(fields, FieldEmail),
		FirstName:     stringField(fields, FieldFirstName),
		LastName:      stringField(fields, FieldLastName),
		PhoneNumber:   stringField(fields, FieldPhoneNumber),
		SchoolName:    stringField(fields, FieldSchoolName),
		UserType:      stringField(fields, FieldUserType),
		DeliveryToken: stringField(fields, FieldDeliveryToken),
	}
	if s := stringField(fields, FieldBirthday); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			u.Birthday = &ts
		}
	}
	return u
}

// EmailIndexFields is the reverse-lookup record written beside every
// account: one per email, pointing back at the identity key.
func EmailIndexFields(email, uid string) map[string]any {
	return map[string]any{FieldEmail: email, FieldUID: uid}
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
