package service

import (
	"context"

	"usermanager/internal/models"
	"usermanager/internal/validation"
)

const profileImageCollection = "profile_images"

// userRules builds the form rules. emailTaken implements the uniqueness check.
func userRules(emailTaken func(ctx context.Context, email string) (bool, error)) validation.Table {
	return validation.Table{
		{Name: "name", Rules: []validation.Rule{
			validation.Required("The name field is required."),
			validation.Tag("alphaunicode", "The name field must only contain letters."),
		}},
		{Name: "email", Rules: []validation.Rule{
			validation.Required("The email field is required."),
			validation.Tag("email", "The email field must be a valid email address."),
			validation.Unique(emailTaken, "The email has already been taken."),
		}},
		{Name: "mobile", Rules: []validation.Rule{
			validation.Required("The mobile field is required."),
			validation.Tag("number,len=10", "The mobile field must be 10 digits."),
		}},
		{Name: "address", Rules: []validation.Rule{
			validation.Required("The address field is required."),
		}},
		{Name: "profile_image", Rules: []validation.Rule{
			validation.Image("The profile image field must be an image."),
			validation.Mimes("The profile image field must be a file of type: jpg, png, gif.", "jpg", "png", "gif"),
			validation.MaxKilobytes(models.MaxImageKilobytes, "The profile image field must not be greater than 2048 kilobytes."),
		}},
	}
}

func inputValues(in models.UserInput) map[string]validation.Value {
	values := map[string]validation.Value{}
	for field, text := range in.Values() {
		values[field] = validation.Text(text)
	}
	values["profile_image"] = validation.File(in.Image)
	return values
}
