// Package urn parses the scheme-qualified addresses attached to outgoing
// messages, such as "tel:+27820001234".
//
// A URN is a scheme and a path separated by the first colon. Parse rejects
// strings with no colon, an empty path, or a scheme that is not one of the
// known schemes:
//
//	u, err := urn.Parse("tel:+1234")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(u.Scheme, u.Path) // tel +1234
package urn
