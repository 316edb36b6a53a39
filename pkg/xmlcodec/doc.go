// Package xmlcodec defines the read/write contract every API entity implements
// and the streaming reader and writer the contract is expressed against.
//
// An entity is read while the Reader is positioned on the entity's own start
// tag and must leave the Reader on the matching end tag:
//
//	func (a *Account) ReadXML(r *xmlcodec.Reader) error {
//		return r.EachChild(func(name string) error {
//			var err error
//			switch name {
//			case "account_code":
//				a.Code, err = r.Text()
//			case "email":
//				a.Email, err = r.OptionalString()
//			}
//			return err
//		})
//	}
//
// Children the callback does not consume are skipped, so unknown elements
// never break parsing.
//
// Writing is done through a Writer with a sticky error: element helpers do
// nothing once an error occurred and WriteXML returns Writer.Err at the end.
//
//	func (a *Account) WriteXML(w *xmlcodec.Writer) error {
//		w.Start("account")
//		w.Element("account_code", a.Code)
//		w.OptionalElement("email", a.Email)
//		w.End("account")
//		return w.Err()
//	}
//
// Values that cannot be decoded are reported as *ParseError naming the
// element. Fields that should fall back to a default instead use the
// *OrDefault helpers.
package xmlcodec
