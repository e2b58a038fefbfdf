// Package menu defines the domain types shared by the menu importer.
//
// A Record is one entry decoded from a remote JSON:API document. An Item is the
// locally stored menu link that a Record is reconciled into. Items recognise a
// fixed set of typed fields (see SetAttribute); any other attribute carried by a
// Record is kept in the item's Extra map instead of being assigned dynamically.
//
// Parent-child relationships are expressed through LinkRef values of the form
// "menu_link_content:<id>", the same form remote documents use for their
// parent attribute.
package menu
