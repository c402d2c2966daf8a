package auth

import "github.com/gator-market/apiserver/types"

// CanMutate reports whether actor may delete or otherwise mutate the
// listing: the seller may, and admins may regardless of ownership.
// Pure function of its inputs.
func CanMutate(actor types.User, listing types.Listing) bool {
	return actor.ID == listing.SellerID || actor.IsAdmin
}
