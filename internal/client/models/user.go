package models

// User is the authenticated identity as returned by the identity service.
// Email is fixed once the account exists. ProfileImage is an opaque
// reference that only the asset-serving side knows how to resolve.
type User struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Gender       string `json:"gender,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Merge returns a copy of u with every non-empty field of patch applied.
// Fields absent from patch keep their prior value and Email never changes.
func (u User) Merge(patch User) User {
	merged := u
	if patch.ID != "" {
		merged.ID = patch.ID
	}
	if patch.FirstName != "" {
		merged.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		merged.LastName = patch.LastName
	}
	if patch.Gender != "" {
		merged.Gender = patch.Gender
	}
	if patch.Phone != "" {
		merged.Phone = patch.Phone
	}
	if patch.ProfileImage != "" {
		merged.ProfileImage = patch.ProfileImage
	}
	return merged
}
