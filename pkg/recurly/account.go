package recurly

import (
	"time"

	"github.com/Sternrassler/recurly-client/pkg/list"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// Account is a customer account.
type Account struct {
	Code        string
	State       *AccountState
	Username    *string
	Email       *string
	FirstName   *string
	LastName    *string
	CompanyName *string
	CreatedAt   *time.Time
}

// AccountCodec describes accounts in collection documents.
var AccountCodec = list.Codec[*Account]{
	Element: "account",
	New:     func() *Account { return &Account{} },
}

// ReadXML implements xmlcodec.Entity.
func (a *Account) ReadXML(r *xmlcodec.Reader) error {
	return r.EachChild(func(name string) error {
		var err error
		switch name {
		case "account_code":
			a.Code, err = r.Text()
		case "state":
			a.State, err = xmlcodec.OptionalEnum(r, accountStates...)
		case "username":
			a.Username, err = r.OptionalString()
		case "email":
			a.Email, err = r.OptionalString()
		case "first_name":
			a.FirstName, err = r.OptionalString()
		case "last_name":
			a.LastName, err = r.OptionalString()
		case "company_name":
			a.CompanyName, err = r.OptionalString()
		case "created_at":
			a.CreatedAt, err = r.OptionalTime()
		}
		return err
	})
}

// WriteXML implements xmlcodec.Entity. Server managed fields are not
// written.
func (a *Account) WriteXML(w *xmlcodec.Writer) error {
	w.Start("account")
	w.Element("account_code", a.Code)
	w.OptionalElement("username", a.Username)
	w.OptionalElement("email", a.Email)
	w.OptionalElement("first_name", a.FirstName)
	w.OptionalElement("last_name", a.LastName)
	w.OptionalElement("company_name", a.CompanyName)
	w.End("account")
	return w.Err()
}
