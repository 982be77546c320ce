package quoterevision

// MintMissingLineItemIDs assigns a freshly minted id to every line item the
// caller did not supply one for. Used at creation time, where caller-supplied
// ids are kept as-is.
func MintMissingLineItemIDs(items []LineItem, mintID func() string) []LineItem {
	minted := make([]LineItem, 0, len(items))

	for _, item := range items {
		if item.ID == "" {
			item.ID = mintID()
		}

		minted = append(minted, item)
	}

	return minted
}

// ReconcileLineItemIDs gives every incoming line item a stable identity before
// its list is persisted: an incoming item whose id matches an existing item
// keeps that id, every other item gets a freshly minted one. An
// unknown caller-supplied id is treated as a new item, not trusted as-is.
//
// This is an explicit reconciliation by id lookup, not structural diffing;
// it is what lets downstream consumers diff wholesale-replaced lists across
// revisions.
func ReconcileLineItemIDs(existing []LineItem, incoming []LineItem, mintID func() string) []LineItem {
	existingIDs := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		existingIDs[item.ID] = struct{}{}
	}

	reconciled := make([]LineItem, 0, len(incoming))

	for _, item := range incoming {
		if _, matched := existingIDs[item.ID]; !matched || item.ID == "" {
			item.ID = mintID()
		}

		reconciled = append(reconciled, item)
	}

	return reconciled
}
