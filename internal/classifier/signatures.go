package classifier

// formSignature maps a CSS-like matcher to the form plugin or page builder
// that produces that markup. Evaluated in order against the parsed DOM; the
// first matching signature labels the detected form.
type formSignature struct {
	Matcher string
	Plugin  string
}

// Known third-party form-plugin and page-builder fingerprints. The table is
// intentionally broad: a match only nominates a candidate, field extraction
// still decides whether the element is submittable.
var formPluginSignatures = []formSignature{
	// WordPress form plugins
	{Matcher: "div.wpcf7 form", Plugin: "contact-form-7"},
	{Matcher: "form.wpcf7-form", Plugin: "contact-form-7"},
	{Matcher: "form.gform_wrapper form", Plugin: "gravity-forms"},
	{Matcher: "div.gform_wrapper form", Plugin: "gravity-forms"},
	{Matcher: "form[id^='gform_']", Plugin: "gravity-forms"},
	{Matcher: "div.wpforms-container form", Plugin: "wpforms"},
	{Matcher: "form.wpforms-form", Plugin: "wpforms"},
	{Matcher: "div.nf-form-cont form", Plugin: "ninja-forms"},
	{Matcher: "form.nf-form", Plugin: "ninja-forms"},
	{Matcher: "div.frm_forms form", Plugin: "formidable"},
	{Matcher: "form.frm-show-form", Plugin: "formidable"},
	{Matcher: "div.caldera-grid form", Plugin: "caldera-forms"},
	{Matcher: "form.caldera_forms_form", Plugin: "caldera-forms"},
	{Matcher: "div.forminator-custom-form", Plugin: "forminator"},
	{Matcher: "form.forminator-custom-form", Plugin: "forminator"},
	{Matcher: "div.everest-forms form", Plugin: "everest-forms"},
	{Matcher: "form.everest-form", Plugin: "everest-forms"},
	{Matcher: "div.fluentform form", Plugin: "fluent-forms"},
	{Matcher: "form.frm-fluent-form", Plugin: "fluent-forms"},
	{Matcher: "div.happyforms-form form", Plugin: "happyforms"},
	{Matcher: "form[class*='happyforms']", Plugin: "happyforms"},
	{Matcher: "div.quform form", Plugin: "quform"},

	// Page builders
	{Matcher: "div.elementor-widget-form form", Plugin: "elementor"},
	{Matcher: "form.elementor-form", Plugin: "elementor"},
	{Matcher: "div.et_pb_contact_form_container form", Plugin: "divi"},
	{Matcher: "form.et_pb_contact_form", Plugin: "divi"},
	{Matcher: "div.wpb_wrapper form", Plugin: "wpbakery"},
	{Matcher: "div.fusion-form form", Plugin: "avada"},
	{Matcher: "form.fusion-form", Plugin: "avada"},
	{Matcher: "div[class*='brz-form'] form", Plugin: "brizy"},
	{Matcher: "div.oxy-form form", Plugin: "oxygen"},
	{Matcher: "div[data-framer-name] form", Plugin: "framer"},

	// Site builders / SaaS platforms
	{Matcher: "form[data-netlify='true']", Plugin: "netlify-forms"},
	{Matcher: "form[netlify]", Plugin: "netlify-forms"},
	{Matcher: "form[action*='formspree.io']", Plugin: "formspree"},
	{Matcher: "form[action*='getform.io']", Plugin: "getform"},
	{Matcher: "form[action*='formsubmit.co']", Plugin: "formsubmit"},
	{Matcher: "form[action*='usebasin.com']", Plugin: "basin"},
	{Matcher: "form[action*='form-data.com']", Plugin: "form-data"},
	{Matcher: "form.email-form[data-name]", Plugin: "webflow"},
	{Matcher: "div.w-form form", Plugin: "webflow"},
	{Matcher: "form[data-wf-page-id]", Plugin: "webflow"},
	{Matcher: "div[data-form-type='formoid'] form", Plugin: "mobirise"},
	{Matcher: "form.mbr-form", Plugin: "mobirise"},
	{Matcher: "div.form-builder form", Plugin: "site-builder"},
	{Matcher: "form[action*='list-manage.com']", Plugin: "mailchimp"},
	{Matcher: "div#mc_embed_signup form", Plugin: "mailchimp"},
	{Matcher: "form.js-cm-form", Plugin: "campaign-monitor"},
	{Matcher: "form[action*='createsend.com']", Plugin: "campaign-monitor"},
	{Matcher: "form[action*='hsforms.com']", Plugin: "hubspot"},
	{Matcher: "div.hbspt-form form", Plugin: "hubspot"},
	{Matcher: "form.hs-form", Plugin: "hubspot"},
	{Matcher: "form[action*='salesforce.com']", Plugin: "salesforce-web2lead"},
	{Matcher: "form[action*='sendgrid.net']", Plugin: "sendgrid"},
	{Matcher: "form[action*='aweber.com']", Plugin: "aweber"},
	{Matcher: "form[action*='constantcontact.com']", Plugin: "constant-contact"},
	{Matcher: "div.ctct-inline-form form", Plugin: "constant-contact"},
	{Matcher: "form[action*='infusionsoft.com']", Plugin: "keap"},
	{Matcher: "form[action*='activehosted.com']", Plugin: "activecampaign"},
	{Matcher: "form._form[action*='activecampaign']", Plugin: "activecampaign"},

	// Generic/other CMS
	{Matcher: "form#contact-form", Plugin: "generic-contact"},
	{Matcher: "form.contact-form", Plugin: "generic-contact"},
	{Matcher: "form[action*='/contact']", Plugin: "generic-contact"},
	{Matcher: "form.webform-submission-form", Plugin: "drupal-webform"},
	{Matcher: "form[id^='webform-submission']", Plugin: "drupal-webform"},
	{Matcher: "form#ff_form", Plugin: "joomla-facileforms"},
	{Matcher: "form.rsform", Plugin: "joomla-rsform"},
}

// iframeServiceSignature maps an iframe src pattern to the embedded form
// service behind it. Embedded services are reported as opaque forms: the
// fields live inside the third-party frame.
type iframeServiceSignature struct {
	URLPattern string
	Plugin     string
}

var iframeServiceSignatures = []iframeServiceSignature{
	{URLPattern: "docs.google.com/forms", Plugin: "google-forms"},
	{URLPattern: "typeform.com", Plugin: "typeform"},
	{URLPattern: "jotform.com", Plugin: "jotform"},
	{URLPattern: "jotform.us", Plugin: "jotform"},
	{URLPattern: "wufoo.com", Plugin: "wufoo"},
	{URLPattern: "formstack.com", Plugin: "formstack"},
	{URLPattern: "cognitoforms.com", Plugin: "cognito-forms"},
	{URLPattern: "airtable.com/embed", Plugin: "airtable"},
	{URLPattern: "paperform.co", Plugin: "paperform"},
	{URLPattern: "tally.so", Plugin: "tally"},
	{URLPattern: "forms.office.com", Plugin: "microsoft-forms"},
	{URLPattern: "surveymonkey.com", Plugin: "surveymonkey"},
	{URLPattern: "hsforms.net", Plugin: "hubspot"},
	{URLPattern: "calendly.com", Plugin: "calendly"},
	{URLPattern: "123formbuilder.com", Plugin: "123formbuilder"},
	{URLPattern: "formsite.com", Plugin: "formsite"},
}

// Comment-area selectors for the common CMS comment implementations.
var commentSectionSignatures = []formSignature{
	{Matcher: "form#commentform", Plugin: "wordpress"},
	{Matcher: "div#respond form", Plugin: "wordpress"},
	{Matcher: "form.comment-form", Plugin: "wordpress"},
	{Matcher: "form#comment-form", Plugin: "generic"},
	{Matcher: "div.comment-respond form", Plugin: "wordpress"},
	{Matcher: "form[action*='wp-comments-post.php']", Plugin: "wordpress"},
	{Matcher: "div.comments-area form", Plugin: "wordpress"},
	{Matcher: "form[action*='/comment']", Plugin: "generic"},
	{Matcher: "div#comments form", Plugin: "generic"},
	{Matcher: "section.comments form", Plugin: "generic"},
	{Matcher: "form.js-comment-form", Plugin: "generic"},
}

// Third-party comment widgets render their forms inside an embedded frame;
// they are reported as opaque embeds with no fillable fields.
var commentWidgetSignatures = []formSignature{
	{Matcher: "div#disqus_thread", Plugin: "disqus"},
	{Matcher: "div.fb-comments", Plugin: "facebook-comments"},
	{Matcher: "div#hyvor-talk-view", Plugin: "hyvor-talk"},
	{Matcher: "div.commento-root", Plugin: "commento"},
	{Matcher: "div#graphcomment", Plugin: "graphcomment"},
	{Matcher: "div.utterances", Plugin: "utterances"},
	{Matcher: "div#remark42", Plugin: "remark42"},
}

// Generic container name patterns for strategy (d): elements whose class/id
// naming or data attributes suggest a contact surface even without a native
// form wrapper.
var genericContainerSelectors = []formSignature{
	{Matcher: "div.contact form", Plugin: "generic-container"},
	{Matcher: "div.contact-us form", Plugin: "generic-container"},
	{Matcher: "section.contact form", Plugin: "generic-container"},
	{Matcher: "div#contact form", Plugin: "generic-container"},
	{Matcher: "div#newsletter form", Plugin: "newsletter"},
	{Matcher: "div.newsletter form", Plugin: "newsletter"},
	{Matcher: "div.subscribe form", Plugin: "newsletter"},
	{Matcher: "footer form", Plugin: "footer-form"},
	{Matcher: "div[data-form-id]", Plugin: "data-attribute"},
	{Matcher: "div[data-hs-forms-root]", Plugin: "hubspot"},
	{Matcher: "div.contact", Plugin: "generic-container"},
	{Matcher: "div#newsletter", Plugin: "newsletter"},
}
