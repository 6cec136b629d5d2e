package gallery

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/security"
)

// MaxImageURLLength は画像URLの最大長。
const MaxImageURLLength = 2048

// CreateCompanyInput は companies.create の入力。
type CreateCompanyInput struct {
	Name        string
	NameJa      string
	Description *string
}

func (in *CreateCompanyInput) normalize(san security.TextSanitizer) error {
	return firstErr(
		cleanText(san, "name", &in.Name),
		cleanText(san, "nameJa", &in.NameJa),
		cleanOptional(san, "description", &in.Description),
	)
}

// Validate は入力値を検証する。
func (in *CreateCompanyInput) Validate() error {
	if err := requireText("name", in.Name, model.MaxNameLength); err != nil {
		return err
	}
	return requireText("nameJa", in.NameJa, model.MaxNameLength)
}

// UpdateCompanyInput は companies.update の入力。nilのフィールドは変更しない。
type UpdateCompanyInput struct {
	ID          int64
	Name        *string
	NameJa      *string
	Description *string
}

func (in *UpdateCompanyInput) normalize(san security.TextSanitizer) error {
	return firstErr(
		cleanOptional(san, "name", &in.Name),
		cleanOptional(san, "nameJa", &in.NameJa),
		cleanOptional(san, "description", &in.Description),
	)
}

// Validate は入力値を検証する。
func (in *UpdateCompanyInput) Validate() error {
	if err := requireID("id", in.ID); err != nil {
		return err
	}
	if err := optionalText("name", in.Name, model.MaxNameLength); err != nil {
		return err
	}
	return optionalText("nameJa", in.NameJa, model.MaxNameLength)
}

func (in *UpdateCompanyInput) patch() model.CompanyPatch {
	return model.CompanyPatch{Name: in.Name, NameJa: in.NameJa, Description: in.Description}
}

// CreateTrainTypeInput は trainTypes.create の入力。
type CreateTrainTypeInput struct {
	CompanyID   int64
	Name        string
	Description *string
}

func (in *CreateTrainTypeInput) normalize(san security.TextSanitizer) error {
	return firstErr(
		cleanText(san, "name", &in.Name),
		cleanOptional(san, "description", &in.Description),
	)
}

// Validate は入力値を検証する。
func (in *CreateTrainTypeInput) Validate() error {
	if err := requireID("companyId", in.CompanyID); err != nil {
		return err
	}
	return requireText("name", in.Name, model.MaxNameLength)
}

// UpdateTrainTypeInput は trainTypes.update の入力。
type UpdateTrainTypeInput struct {
	ID          int64
	Name        *string
	Description *string
}

func (in *UpdateTrainTypeInput) normalize(san security.TextSanitizer) error {
	return firstErr(
		cleanOptional(san, "name", &in.Name),
		cleanOptional(san, "description", &in.Description),
	)
}

// Validate は入力値を検証する。
func (in *UpdateTrainTypeInput) Validate() error {
	if err := requireID("id", in.ID); err != nil {
		return err
	}
	return optionalText("name", in.Name, model.MaxNameLength)
}

// CreateFormationInput は formations.create の入力。
type CreateFormationInput struct {
	TrainTypeID int64
	Name        string
	Description *string
}

func (in *CreateFormationInput) normalize(san security.TextSanitizer) error {
	return firstErr(
		cleanText(san, "name", &in.Name),
		cleanOptional(san, "description", &in.Description),
	)
}

// Validate は入力値を検証する。
func (in *CreateFormationInput) Validate() error {
	if err := requireID("trainTypeId", in.TrainTypeID); err != nil {
		return err
	}
	return requireText("name", in.Name, model.MaxNameLength)
}

// UpdateFormationInput は formations.update の入力。
type UpdateFormationInput struct {
	ID          int64
	Name        *string
	Description *string
}

func (in *UpdateFormationInput) normalize(san security.TextSanitizer) error {
	return firstErr(
		cleanOptional(san, "name", &in.Name),
		cleanOptional(san, "description", &in.Description),
	)
}

// Validate は入力値を検証する。
func (in *UpdateFormationInput) Validate() error {
	if err := requireID("id", in.ID); err != nil {
		return err
	}
	return optionalText("name", in.Name, model.MaxNameLength)
}

// CreatePhotoInput は photos.create の入力。
// 投稿者は常に呼び出し元になるため、入力には含めない。
type CreatePhotoInput struct {
	FormationID  int64
	ImageURL     string
	ImageKey     string
	ThumbnailURL *string
	Title        *string
	Description  *string
	ShootDate    *time.Time
	Location     *string
}

func (in *CreatePhotoInput) normalize(san security.TextSanitizer) error {
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ImageKey = strings.TrimSpace(in.ImageKey)
	if in.ThumbnailURL != nil {
		v := strings.TrimSpace(*in.ThumbnailURL)
		in.ThumbnailURL = &v
	}
	return firstErr(
		cleanOptional(san, "title", &in.Title),
		cleanOptional(san, "description", &in.Description),
		cleanOptional(san, "location", &in.Location),
	)
}

// Validate は入力値を検証する。
func (in *CreatePhotoInput) Validate() error {
	if err := requireID("formationId", in.FormationID); err != nil {
		return err
	}
	if err := imageURL("imageUrl", in.ImageURL); err != nil {
		return err
	}
	if err := requireText("imageKey", in.ImageKey, model.MaxImageKeyLength); err != nil {
		return err
	}
	if in.ThumbnailURL != nil {
		if err := imageURL("thumbnailUrl", *in.ThumbnailURL); err != nil {
			return err
		}
	}
	if err := maxLength("title", in.Title, model.MaxTitleLength); err != nil {
		return err
	}
	return maxLength("location", in.Location, model.MaxLocationLength)
}

// UpdatePhotoInput は photos.update の入力。
type UpdatePhotoInput struct {
	ID          int64
	Title       *string
	Description *string
	ShootDate   *time.Time
	Location    *string
}

func (in *UpdatePhotoInput) normalize(san security.TextSanitizer) error {
	return firstErr(
		cleanOptional(san, "title", &in.Title),
		cleanOptional(san, "description", &in.Description),
		cleanOptional(san, "location", &in.Location),
	)
}

// Validate は入力値を検証する。
func (in *UpdatePhotoInput) Validate() error {
	if err := requireID("id", in.ID); err != nil {
		return err
	}
	if err := maxLength("title", in.Title, model.MaxTitleLength); err != nil {
		return err
	}
	return maxLength("location", in.Location, model.MaxLocationLength)
}

// idInput はIDのみを受け取る操作の入力。
type idInput struct {
	field string
	id    int64
}

func (in idInput) normalize(security.TextSanitizer) error { return nil }

func (in idInput) Validate() error {
	return requireID(in.field, in.id)
}

// cleanText はフィールドの値を検査済みのテキストに置き換える。
// マークアップを含む値は書き換えずにVALIDATION_ERRORとする。
func cleanText(san security.TextSanitizer, field string, v *string) error {
	cleaned, err := san.PlainText(*v)
	if err != nil {
		return model.NewValidationError(field, "HTMLタグや文字参照は使用できません")
	}
	*v = cleaned
	return nil
}

// cleanOptional はcleanTextの省略可能版。呼び出し元の文字列は変更せず新しいポインタを設定する。
func cleanOptional(san security.TextSanitizer, field string, v **string) error {
	if *v == nil {
		return nil
	}
	cleaned := **v
	if err := cleanText(san, field, &cleaned); err != nil {
		return err
	}
	*v = &cleaned
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func requireID(field string, id int64) error {
	if id <= 0 {
		return model.NewValidationError(field, "正の整数を指定してください")
	}
	return nil
}

func requireText(field, v string, max int) error {
	if v == "" {
		return model.NewValidationError(field, "必須です")
	}
	if utf8.RuneCountInString(v) > max {
		return model.NewValidationError(field, "長すぎます")
	}
	return nil
}

// optionalText は指定された場合のみ必須項目と同じ検証を行う。
func optionalText(field string, v *string, max int) error {
	if v == nil {
		return nil
	}
	return requireText(field, *v, max)
}

func maxLength(field string, v *string, max int) error {
	if v != nil && utf8.RuneCountInString(*v) > max {
		return model.NewValidationError(field, "長すぎます")
	}
	return nil
}

// imageURL はhttp/httpsの絶対URLまたは "/" から始まるパスのみ許可する。
func imageURL(field, v string) error {
	if v == "" {
		return model.NewValidationError(field, "必須です")
	}
	if len(v) > MaxImageURLLength {
		return model.NewValidationError(field, "長すぎます")
	}
	u, err := url.Parse(v)
	if err != nil {
		return model.NewValidationError(field, "URLの形式が不正です")
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		if u.Host == "" {
			return model.NewValidationError(field, "ホストがありません")
		}
	case u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/"):
	default:
		return model.NewValidationError(field, "http/httpsのURLを指定してください")
	}
	return nil
}
