package account

import (
	"errors"
	"io"
	"net/http"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/internal/service"
	"bitwise74/todo-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// email is accepted so clients can send back what they fetched, it's
// derived from the account and never written
type profileBody struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Description *string `json:"description"`
}

func profileJSON(d *internal.Deps, acc *model.Account, prof *model.Profile) gin.H {
	return gin.H{
		"email":       acc.Email,
		"first_name":  prof.FirstName,
		"last_name":   prof.LastName,
		"image":       d.Profiles.ImageURL(prof),
		"description": prof.Description,
	}
}

func ProfileFetch(c *gin.Context, d *internal.Deps) {
	acc := middleware.Account(c)

	prof, err := d.Profiles.Get(c.Request.Context(), acc.ID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profileJSON(d, acc, prof))
}

// ProfileUpdate takes either JSON or a multipart form. Only the form can
// carry a new image.
func ProfileUpdate(c *gin.Context, d *internal.Deps) {
	acc := middleware.Account(c)
	ctx := c.Request.Context()

	var (
		u     service.ProfileUpdate
		image io.Reader
	)

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		u = service.ProfileUpdate{
			FirstName:   postForm(c, "first_name"),
			LastName:    postForm(c, "last_name"),
			Description: postForm(c, "description"),
		}

		fh, err := c.FormFile("image")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			fail(c, err)
			return
		}

		if fh != nil {
			f, err := fh.Open()
			if err != nil {
				respond.Internal(c, "Failed to open uploaded image", err)
				return
			}
			defer f.Close()

			image = f
		}
	} else {
		var data profileBody
		if !respond.Bind(c, &data) {
			return
		}

		u = service.ProfileUpdate{
			FirstName:   data.FirstName,
			LastName:    data.LastName,
			Description: data.Description,
		}
	}

	prof, err := d.Profiles.Save(ctx, acc.ID, u, image)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profileJSON(d, acc, prof))
}

func postForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}

	return &v
}
