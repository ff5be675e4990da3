package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/dmitrijs2005/thyroscope/internal/client/guard"
)

// ProfileImageURL resolves an image reference against the asset base. A ref
// that is already absolute is returned unchanged; an empty ref yields "".
func ProfileImageURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	return b.ResolveReference(r).String()
}

func (a *App) Profile(ctx context.Context) error {
	cur, ok := a.openAs(ctx, guard.ViewProfile)
	if !ok {
		return nil
	}
	u := cur.User

	fmt.Fprintf(a.out, "Name:   %s %s\n", u.FirstName, u.LastName)
	fmt.Fprintf(a.out, "Email:  %s\n", u.Email)
	if u.Gender != "" {
		fmt.Fprintf(a.out, "Gender: %s\n", u.Gender)
	}
	if u.Phone != "" {
		fmt.Fprintf(a.out, "Phone:  %s\n", u.Phone)
	}
	if img := ProfileImageURL(a.assetBase, u.ProfileImage); img != "" {
		fmt.Fprintf(a.out, "Image:  %s\n", img)
	}
	return nil
}

// EditProfile asks for new values; empty answers keep the current value.
func (a *App) EditProfile(ctx context.Context) error {
	cur, ok := a.openAs(ctx, guard.ViewProfile)
	if !ok {
		return nil
	}
	u := cur.User

	var upd client.ProfileUpdate
	var err error
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{fmt.Sprintf("First name [%s]", u.FirstName), &upd.FirstName},
		{fmt.Sprintf("Last name [%s]", u.LastName), &upd.LastName},
		{fmt.Sprintf("Gender [%s]", u.Gender), &upd.Gender},
		{fmt.Sprintf("Phone [%s]", u.Phone), &upd.Phone},
	} {
		if *f.dst, err = getSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	image, closeImage, err := a.askImage()
	if err != nil {
		fmt.Fprintln(a.out, err)
		return nil
	}
	defer closeImage()
	upd.Image = image

	if _, err := a.auth.UpdateProfile(ctx, upd); err != nil {
		fmt.Fprintln(a.out, describe(err, "Profile update failed"))
		return nil
	}
	fmt.Fprintln(a.out, "Profile updated successfully!")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	if !a.open(ctx, guard.ViewProfile) {
		return nil
	}

	oldPassword, err := getPassword("Current password", a.out)
	if err != nil {
		return err
	}
	newPassword, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	confirmation, err := getPassword("Confirm new password", a.out)
	if err != nil {
		return err
	}

	if err := a.auth.ChangePassword(ctx, oldPassword, newPassword, confirmation); err != nil {
		fmt.Fprintln(a.out, describe(err, "Password change failed"))
		return nil
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

func (a *App) DeleteAccount(ctx context.Context) error {
	if !a.open(ctx, guard.ViewProfile) {
		return nil
	}

	ok, err := confirm(a.reader, "Delete your account permanently? This cannot be undone.", a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.auth.DeleteAccount(ctx); err != nil {
		fmt.Fprintln(a.out, describe(err, "Account deletion failed"))
		return nil
	}
	fmt.Fprintln(a.out, "Account deleted.")
	return nil
}
