package sqlassets

import _ "embed"

//go:embed schema/registry/tenants.sql
var TenantsSQL string

//go:embed schema/registry/tenant_domains.sql
var TenantDomainsSQL string

//go:embed schema/registry/principals.sql
var PrincipalsSQL string

//go:embed schema/content/site_info.sql
var SiteInfoSQL string

//go:embed schema/content/menu.sql
var MenuSQL string

//go:embed schema/content/page_views.sql
var PageViewsSQL string

//go:embed schema/content/carousel.sql
var CarouselSQL string
