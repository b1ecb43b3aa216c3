package crm

// Frame names of the eware.dll frameset. An empty frame name addresses the
// top-level document.
const (
	FrameTop  = "EWARE_TOP"
	FrameMenu = "EWARE_MENU"
	FrameMid  = "EWARE_MID"
)

const (
	selLogonButton  = ".Logonbutton"
	selUserID       = "[name='EWARE_USERID']"
	selPassword     = "[name='PASSWORD']"
	selFind         = "#Find"
	selMenuOption   = "#SELECTMenuOption"
	selInvoiceField = "#oppo_afwinvno"
	selFeeField     = "#oppo_dwnetlicfee"

	opportunitiesOption = "opportunities"

	// The third .Logonbutton on the post-login page is the navigation tile.
	navTileIndex   = 2
	minLogonTiles  = navTileIndex + 1
	loginPollCount = 5
)

// searchButtons lists the search controls in priority order.
var searchButtons = []string{
	"a.ButtonItem[href*='EntryForm.submit']",
	"a.ButtonItem img[src*='Search.gif']",
	"[name='Find']",
}
