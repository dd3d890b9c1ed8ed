// Package reporttest scripts an in-memory imitation of the console on top of
// browsertest.Page.
package reporttest

import (
	"sync"

	"github.com/de-tools/airregi-sync/pkg/browser"
	"github.com/de-tools/airregi-sync/pkg/browser/browsertest"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

const (
	LoginURL        = "https://connect.example.test/login?client_id=ARG"
	TopURL          = "https://pos.example.test/CLP/view/top"
	ProductSalesURL = "https://pos.example.test/CLP/view/salesListByMenu/"
	SalesListURL    = "https://pos.example.test/CLP/view/salesList/#/"
)

type Console struct {
	Page *browsertest.Page

	Identity string
	Secret   string
	// ConfirmLogout makes the logout link bring the login form back.
	ConfirmLogout bool
	ProductCSV    []byte
	DailyCSV      []byte
	// BrokenDailyExport hides the daily export menu.
	BrokenDailyExport bool

	mu       sync.Mutex
	loggedIn bool
}

// NewConsole accepts the credentials u/p.
func NewConsole() *Console {
	c := &Console{
		Page:          browsertest.New(),
		Identity:      "u",
		Secret:        "p",
		ConfirmLogout: true,
		ProductCSV:    []byte("商品名,数量\nコーヒー,3\n"),
		DailyCSV:      []byte("日付,売上\n2024/05/20,1200\n"),
	}
	c.Page.Route(LoginURL, c.renderLogin)
	c.Page.Route(ProductSalesURL, c.renderProductSales)
	return c
}

func (c *Console) Endpoints() domain.Endpoints {
	return domain.Endpoints{LoginURL: LoginURL, ProductSalesURL: ProductSalesURL}
}

// LoggedIn reports whether the console-side session is open.
func (c *Console) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// SignIn opens the landing page as if the login form had been submitted.
func (c *Console) SignIn() {
	c.setLoggedIn(true)
	c.Page.Load(TopURL)
	c.renderHeader(c.Page)
}

func (c *Console) setLoggedIn(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedIn = v
}

func (c *Console) renderLogin(p *browsertest.Page) {
	p.Set("#account", &browsertest.Element{})
	p.Set("#password", &browsertest.Element{})
	p.Set("input.primary", &browsertest.Element{OnClick: func(p *browsertest.Page) {
		if p.Value("#account") != c.Identity || p.Value("#password") != c.Secret {
			return
		}
		c.setLoggedIn(true)
		p.Load(TopURL)
		c.renderHeader(p)
	}})
}

func (c *Console) renderHeader(p *browsertest.Page) {
	p.Set("li.cmn-hdr-account", &browsertest.Element{OnClick: func(p *browsertest.Page) {
		p.Show("a.cmn-hdr-logout-link")
	}})
	p.Set("a.cmn-hdr-logout-link", &browsertest.Element{Hidden: true, OnClick: func(p *browsertest.Page) {
		if !c.ConfirmLogout {
			return
		}
		c.setLoggedIn(false)
		p.Load(LoginURL)
		c.renderLogin(p)
	}})
}

func (c *Console) renderProductSales(p *browsertest.Page) {
	if !c.LoggedIn() {
		p.Load(LoginURL)
		c.renderLogin(p)
		return
	}
	c.renderHeader(p)
	p.Set(`a[data-sc="LinkSalesList"]`, &browsertest.Element{OnClick: c.openSalesList})
	p.Set("#btnSearch", &browsertest.Element{OnClick: func(p *browsertest.Page) {
		p.Set(".btn-CSV-DL", armOnClick(".btn-CSV-DL", &browser.Download{
			SuggestedFilename: "salesListByMenu.csv",
			Data:              c.ProductCSV,
		}))
	}})
}

func (c *Console) openSalesList(p *browsertest.Page) {
	p.Load(SalesListURL)
	c.renderHeader(p)
	if c.BrokenDailyExport {
		return
	}
	p.Set("button.pull-right.csv-download-button", &browsertest.Element{OnClick: func(p *browsertest.Page) {
		p.Set("button.salse-csv-dl", armOnClick("button.salse-csv-dl", &browser.Download{
			SuggestedFilename: "salesList.csv",
			Data:              c.DailyCSV,
		}))
	}})
}

// armOnClick is an export control that prepares its file on the first click
// and hands it out from the second click on.
func armOnClick(selector string, d *browser.Download) *browsertest.Element {
	return &browsertest.Element{OnClick: func(p *browsertest.Page) {
		p.Set(selector, &browsertest.Element{Download: d})
	}}
}
