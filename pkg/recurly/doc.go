// Package recurly provides the Recurly v2 entities and the services that
// fetch and create them.
//
// Entities implement xmlcodec.Entity. Collections are returned as
// list.List values, which carry the cursors to neighbouring pages:
//
//	rc := recurly.NewClient(c)
//	accounts, err := rc.Accounts.List(ctx, recurly.AccountStateActive)
//	if err != nil {
//		return err
//	}
//	for _, a := range accounts.All() {
//		fmt.Println(a.Code)
//	}
package recurly
